package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "a2ui_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "a2ui_generation_latency_seconds",
			Help:    "LLM generation latency in seconds, including the refusal retry",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	GenerationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_generation_errors_total",
			Help: "Upstream generation failures by error kind",
		},
		[]string{"provider", "kind"},
	)

	RefusalRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_refusal_retries_total",
			Help: "Generations retried after a detected refusal",
		},
		[]string{"provider"},
	)

	StyleSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_style_selections_total",
			Help: "Content styles chosen, by selection method",
		},
		[]string{"style", "method"},
	)

	AnalyzerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2ui_analyzer_fallbacks_total",
			Help: "Requests where every analyzer candidate failed and rules were used",
		},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_search_requests_total",
			Help: "Web search calls by outcome",
		},
		[]string{"outcome"},
	)

	DataSourceQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2ui_data_source_queries_total",
			Help: "Active data source queries by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "a2ui_active_streams",
			Help: "Number of pipeline runs in flight",
		},
	)
)

// Outcome 计数标签
func Outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
