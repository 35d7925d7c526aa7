package model

// Component A2UI 组件节点
type Component struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Children []Component    `json:"children,omitempty"`
}

type A2UI struct {
	Version    string      `json:"version"`
	Components []Component `json:"components"`
}

// UIResponse 管线最终输出；下划线字段为诊断信息，前端可忽略
type UIResponse struct {
	Text        string   `json:"text"`
	A2UI        *A2UI    `json:"a2ui,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Images      []string `json:"_images,omitempty"`

	Style           string                 `json:"_style,omitempty"`
	PerformanceMode string                 `json:"_performance_mode,omitempty"`
	Analysis        *AnalysisDiagnostics   `json:"_analysis,omitempty"`
	Search          *SearchDiagnostics     `json:"_search,omitempty"`
	Location        *LocationDiagnostics   `json:"_location,omitempty"`
	DataSources     *DataSourceDiagnostics `json:"_data_sources,omitempty"`
	Budget          *BudgetDiagnostics     `json:"_budget,omitempty"`
	SchemaWarnings  []string               `json:"_schema_warnings,omitempty"`
}

type AnalysisDiagnostics struct {
	Method   string `json:"method"` // ai | rules | explicit
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

type SearchDiagnostics struct {
	Searched     bool   `json:"searched"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Query        string `json:"query,omitempty"`
	ResultsCount int    `json:"results_count,omitempty"`
	ImagesCount  int    `json:"images_count,omitempty"`
}

type LocationDiagnostics struct {
	Provided bool   `json:"provided"`
	Attached bool   `json:"attached"`
	Reason   string `json:"reason,omitempty"`
}

type DataSourceDiagnostics struct {
	Passive int                      `json:"passive"`
	Active  []DataSourceQueryOutcome `json:"active,omitempty"`
	Reason  string                   `json:"reason,omitempty"`
}

type DataSourceQueryOutcome struct {
	Source      string `json:"source"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	RecordCount int    `json:"record_count,omitempty"`
}

type BudgetDiagnostics struct {
	MaxBodyBytes       int    `json:"max_body_bytes"`
	EffectiveBodyBytes int    `json:"effective_body_bytes"`
	Action             string `json:"action,omitempty"` // headroom | downgrade
	FromStyle          string `json:"from_style,omitempty"`
	HistoryKept        int    `json:"history_kept"`
	HistoryDropped     int    `json:"history_dropped"`
}

// 流式事件类型
const (
	EventStep     = "step"
	EventComplete = "complete"
	EventError    = "error"
)

// 步骤状态
const (
	StepStart = "start"
	StepDone  = "done"
)

// StepEvent 管线进度
type StepEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Result any    `json:"result,omitempty"`
}

// StreamEvent 流中的一个事件；Complete 和 Error 只会出现一次且位于末尾
type StreamEvent struct {
	Type     string      `json:"event"`
	Step     *StepEvent  `json:"step,omitempty"`
	Response *UIResponse `json:"response,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Terminal 是否为终止事件
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Payload SSE data 字段的内容
func (e StreamEvent) Payload() any {
	switch e.Type {
	case EventStep:
		return e.Step
	case EventComplete:
		return e.Response
	default:
		return map[string]string{"message": e.Error}
	}
}
