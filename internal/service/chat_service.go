// Package service 生成管线编排：工具开关、意图分析、外部增强、提示词构建、生成与后处理。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/analyzer"
	"a2ui-backend/internal/config"
	"a2ui-backend/internal/datasource"
	"a2ui-backend/internal/history"
	"a2ui-backend/internal/metrics"
	"a2ui-backend/internal/model"
	"a2ui-backend/internal/provider"
	"a2ui-backend/internal/styles"
	"a2ui-backend/internal/tools"
	"a2ui-backend/pkg/logger"
)

// 步骤 id
const (
	stepTools       = "tools"
	stepAnalyze     = "analyze"
	stepLocation    = "location"
	stepSearch      = "search"
	stepDataSources = "data_sources"
	stepPrompt      = "prompt"
	stepGenerate    = "generate"
	stepPostprocess = "postprocess"
)

var stepLabels = map[string]string{
	stepTools:       "Checking tools",
	stepAnalyze:     "Analyzing request",
	stepLocation:    "Using your location",
	stepSearch:      "Searching the web",
	stepDataSources: "Querying data sources",
	stepPrompt:      "Building prompt",
	stepGenerate:    "Generating response",
	stepPostprocess: "Formatting response",
}

const genericFailure = "Something went wrong generating a response. Please try again."

// IntentAnalyzer 意图分析器；返回 nil 表示全部候选失败
type IntentAnalyzer interface {
	Analyze(ctx context.Context, message string, history []model.ChatTurn, dataSources string) *analyzer.Result
}

// Deps ChatService 的协作者，全部在启动时构建、之后只读
type Deps struct {
	Pipeline  config.PipelineConfig
	Styles    *styles.Registry
	Providers *provider.Registry
	Analyzer  IntentAnalyzer
	Search    tools.Searcher
	Sources   *datasource.Registry
	Gates     *tools.Gates
	Images    *tools.ImagePolicy
	Now       func() time.Time
}

type ChatService struct {
	cfg       config.PipelineConfig
	styles    *styles.Registry
	providers *provider.Registry
	analyzer  IntentAnalyzer
	search    tools.Searcher
	sources   *datasource.Registry
	gates     *tools.Gates
	images    *tools.ImagePolicy
	now       func() time.Time
}

func NewChatService(d Deps) *ChatService {
	s := &ChatService{
		cfg:       d.Pipeline,
		styles:    d.Styles,
		providers: d.Providers,
		analyzer:  d.Analyzer,
		search:    d.Search,
		sources:   d.Sources,
		gates:     d.Gates,
		images:    d.Images,
		now:       d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sources == nil {
		s.sources = datasource.NewRegistry(d.Pipeline.DataSourceTimeout)
	}
	if s.gates == nil {
		s.gates = tools.NewGates(config.ToolsConfig{})
	}
	if s.images == nil {
		s.images, _ = tools.NewImagePolicy(nil, nil)
	}
	return s
}

// Chat 非流式调用：消费整条事件流，只保留终止负载
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.UIResponse, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	var last model.StreamEvent
	for ev := range s.run(ctx, req) {
		last = ev
	}
	switch last.Type {
	case model.EventComplete:
		return last.Response, nil
	case model.EventError:
		return nil, errors.New(last.Error)
	}
	return nil, ctx.Err()
}

// StreamChat 校验通过后返回事件流：若干 step 事件，最后恰好一个 complete 或 error
func (s *ChatService) StreamChat(ctx context.Context, req *model.ChatRequest) (<-chan model.StreamEvent, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	return s.run(ctx, req), nil
}

// pipelineRun 单次请求的可变状态，只在一个 goroutine 内使用
type pipelineRun struct {
	ctx    context.Context
	events chan<- model.StreamEvent
	req    *model.ChatRequest
	log    *logrus.Entry

	useSearch, useGeo, useHistory, useClassifier, useSources bool

	mode         string
	style        string
	autoStyle    bool
	analysis     *model.AnalysisResult
	analysisDiag *model.AnalysisDiagnostics
	locLabel     string
	locPrefix    string
	blocks       []string
	contributed  []string
	images       []string

	resp *model.UIResponse
}

func (s *ChatService) run(ctx context.Context, req *model.ChatRequest) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent, 32)

	go func() {
		defer close(events)
		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()

		r := &pipelineRun{
			ctx:    ctx,
			events: events,
			req:    req,
			log:    logger.WithFields(logger.Fields{"provider": req.Provider, "model": req.Model}),
		}

		defer func() {
			if p := recover(); p != nil {
				logger.Errorf("生成管线 panic: %v", p)
				r.emit(model.StreamEvent{Type: model.EventError, Error: genericFailure})
			}
		}()

		if err := s.execute(r); err != nil {
			r.log.Errorf("生成管线失败: %v", err)
			r.emit(model.StreamEvent{Type: model.EventError, Error: genericFailure})
			return
		}
		r.emit(model.StreamEvent{Type: model.EventComplete, Response: r.resp})
	}()

	return events
}

func (r *pipelineRun) emit(ev model.StreamEvent) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func (r *pipelineRun) step(id, status, detail string, result any) {
	r.emit(model.StreamEvent{Type: model.EventStep, Step: &model.StepEvent{
		ID:     id,
		Status: status,
		Label:  stepLabels[id],
		Detail: detail,
		Result: result,
	}})
}

func (s *ChatService) execute(r *pipelineRun) error {
	s.resolveTools(r)
	s.analyze(r)

	resp := &model.UIResponse{}
	s.resolveLocation(r, resp)
	s.webSearch(r, resp)
	s.dataSources(r, resp)

	genReq := s.buildPrompt(r, resp)

	r.step(stepGenerate, model.StepStart, r.req.Model, nil)
	gctx := r.ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(r.ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	out, err := s.providers.Generate(gctx, r.req.Provider, genReq)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	metrics.GenerationLatency.WithLabelValues(r.req.Provider).Observe(out.Duration.Seconds())
	if out.ErrorKind != "" {
		metrics.GenerationErrors.WithLabelValues(r.req.Provider, string(out.ErrorKind)).Inc()
	}
	if out.Retried {
		metrics.RefusalRetries.WithLabelValues(r.req.Provider).Inc()
	}
	r.step(stepGenerate, model.StepDone, out.Duration.Round(time.Millisecond).String(), map[string]any{
		"retried": out.Retried,
		"error":   string(out.ErrorKind),
	})

	r.step(stepPostprocess, model.StepStart, "", nil)
	payload := a2ui.EnforceVisualHierarchy(out.Payload, s.styles.PriorityOf(r.style))
	final := a2ui.ToUIResponse(payload)
	final.Style = r.style
	final.PerformanceMode = r.mode
	final.Analysis = resp.Analysis
	final.Search = resp.Search
	final.Location = resp.Location
	final.DataSources = resp.DataSources
	final.Budget = resp.Budget
	if len(r.images) > 0 {
		final.Images = r.images
	}
	final.SchemaWarnings = a2ui.Validate(final)
	r.resp = final

	components := 0
	if final.A2UI != nil {
		components = len(final.A2UI.Components)
	}
	r.step(stepPostprocess, model.StepDone, fmt.Sprintf("%d components", components), nil)
	r.log.Infof("生成完成: style=%s components=%d retried=%v", r.style, components, out.Retried)
	return nil
}

func (s *ChatService) resolveTools(r *pipelineRun) {
	r.step(stepTools, model.StepStart, "", nil)

	req := r.req
	r.useSearch = s.gates.Resolve(tools.ToolWebSearch, req.EnableWebSearch)
	r.useGeo = s.gates.Resolve(tools.ToolGeolocation, req.EnableGeolocation)
	r.useHistory = s.gates.Resolve(tools.ToolHistory, req.EnableHistory)
	r.useClassifier = s.gates.Resolve(tools.ToolAIClassifier, req.EnableAIClassifier)
	r.useSources = s.gates.Resolve(tools.ToolDataSources, req.EnableDataSources)

	r.mode = req.PerformanceMode
	if r.mode == "" {
		r.mode = s.cfg.DefaultPerformanceMode
	}
	if r.mode == "" {
		r.mode = ModeAuto
	}

	r.step(stepTools, model.StepDone, "", map[string]bool{
		string(tools.ToolWebSearch):    r.useSearch,
		string(tools.ToolGeolocation):  r.useGeo,
		string(tools.ToolHistory):      r.useHistory,
		string(tools.ToolAIClassifier): r.useClassifier,
		string(tools.ToolDataSources):  r.useSources,
	})
}

// shouldRunAnalyzer comprehensive 忽略调用方开关但仍服从环境锁；optimized 从不调用
func (s *ChatService) shouldRunAnalyzer(r *pipelineRun) bool {
	if s.analyzer == nil {
		return false
	}
	switch r.mode {
	case ModeOptimized:
		return false
	case ModeComprehensive:
		return s.gates.Resolve(tools.ToolAIClassifier, nil)
	}
	return r.useClassifier
}

func (s *ChatService) analyze(r *pipelineRun) {
	r.step(stepAnalyze, model.StepStart, "", nil)

	requested := strings.TrimSpace(r.req.ContentStyle)
	explicit := requested != "" && requested != styles.Auto && s.styles.Has(requested)
	unknown := requested != "" && requested != styles.Auto && !explicit
	diag := &model.AnalysisDiagnostics{Method: "rules"}

	var result *analyzer.Result
	if s.shouldRunAnalyzer(r) {
		dsContext := ""
		if r.useSources {
			dsContext = s.sources.AnalyzerContext()
		}
		result = s.analyzer.Analyze(r.ctx, r.req.Message, r.historyForAnalysis(), dsContext)
		if result == nil {
			metrics.AnalyzerFallbacks.Inc()
			r.log.Warnf("意图分析不可用，使用规则回退")
		}
	}

	if result != nil {
		r.analysis = result.Analysis
		diag = &model.AnalysisDiagnostics{Method: "ai", Provider: result.Provider, Model: result.Model}
	} else {
		r.analysis = analyzer.Fallback(r.req.Message)
	}

	switch {
	case explicit:
		r.style = s.styles.Resolve(requested)
		diag.Method = "explicit"
	case unknown:
		// 未知风格按自动选择处理，落到默认风格
		r.log.Warnf("未知风格 %q，使用默认风格 %s", requested, s.styles.Default())
		r.style = s.styles.Default()
		r.autoStyle = true
	case r.mode == ModeOptimized:
		r.style = s.styles.BySize()[0]
		r.autoStyle = true
	default:
		r.style = s.styles.Resolve(r.analysis.Style)
		r.autoStyle = true
	}
	r.analysis.Style = r.style

	metrics.StyleSelections.WithLabelValues(r.style, diag.Method).Inc()
	r.step(stepAnalyze, model.StepDone, r.style, map[string]any{
		"style":    r.style,
		"method":   diag.Method,
		"search":   r.analysis.Search,
		"location": r.analysis.Location,
	})
	r.analysisDiag = diag
}

func (r *pipelineRun) historyForAnalysis() []model.ChatTurn {
	if !r.useHistory {
		return nil
	}
	return r.req.History
}

func (s *ChatService) resolveLocation(r *pipelineRun, resp *model.UIResponse) {
	resp.Analysis = r.analysisDiag

	loc := r.req.UserLocation
	if !r.analysis.Location && loc == nil {
		return
	}

	diag := &model.LocationDiagnostics{Provided: loc != nil}
	resp.Location = diag
	switch {
	case !r.analysis.Location:
		diag.Reason = "not_needed"
		return
	case !r.useGeo:
		diag.Reason = "disabled"
		return
	case loc == nil:
		diag.Reason = "not_provided"
		return
	}

	r.step(stepLocation, model.StepStart, "", nil)
	r.locLabel = strings.TrimSpace(loc.Label)
	if r.locLabel != "" {
		r.locPrefix = fmt.Sprintf("[User Location: %s (%v, %v)]\n", r.locLabel, loc.Lat, loc.Lng)
	} else {
		r.locPrefix = fmt.Sprintf("[User Location: %v, %v]\n", loc.Lat, loc.Lng)
	}
	diag.Attached = true
	r.step(stepLocation, model.StepDone, r.locLabel, nil)
}

func (s *ChatService) webSearch(r *pipelineRun, resp *model.UIResponse) {
	if !r.analysis.Search {
		return
	}
	if !r.useSearch {
		resp.Search = &model.SearchDiagnostics{Reason: "disabled"}
		return
	}
	if s.search == nil || !s.search.Available() {
		r.log.Infof("未配置网页搜索，仅使用模型知识")
		resp.Search = &model.SearchDiagnostics{Reason: string(tools.SearchNotConfigured)}
		return
	}

	query := r.analysis.SearchQuery
	if query == "" {
		query = tools.RewriteSearchQuery(r.req.Message, r.locLabel, s.now())
	}
	r.step(stepSearch, model.StepStart, query, nil)

	sctx := r.ctx
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(r.ctx, s.cfg.SearchTimeout)
		defer cancel()
	}
	result := s.search.Search(sctx, query)

	diag := &model.SearchDiagnostics{Searched: true, Query: query}
	resp.Search = diag

	block, ok := tools.FormatForContext(result)
	if !ok {
		diag.Error = string(tools.SearchUnknown)
		if result != nil && result.Error != "" {
			diag.Error = string(result.Error)
		}
		metrics.SearchRequests.WithLabelValues(metrics.Outcome(false)).Inc()
		r.log.Warnf("网页搜索失败 (%s)，继续生成", diag.Error)
		r.step(stepSearch, model.StepDone, "failed: "+diag.Error, diag)
		return
	}

	diag.Success = true
	diag.ResultsCount = len(result.Results)
	diag.ImagesCount = len(result.Images)
	r.blocks = append(r.blocks, block)
	if len(result.Images) > 0 && s.images.ShowImages(r.req.Message) {
		r.images = result.Images
		if len(r.images) > tools.MaxImages {
			r.images = r.images[:tools.MaxImages]
		}
	}
	metrics.SearchRequests.WithLabelValues(metrics.Outcome(true)).Inc()
	r.step(stepSearch, model.StepDone, fmt.Sprintf("%d results", diag.ResultsCount), diag)
}

func (s *ChatService) dataSources(r *pipelineRun, resp *model.UIResponse) {
	passive := r.req.DataContext
	active := r.analysis.DataSources
	if len(passive) == 0 && len(active) == 0 {
		return
	}
	if !r.useSources {
		resp.DataSources = &model.DataSourceDiagnostics{Reason: "disabled"}
		return
	}

	r.step(stepDataSources, model.StepStart, "", nil)
	diag := &model.DataSourceDiagnostics{Passive: len(passive)}
	resp.DataSources = diag

	blocks := datasource.FormatPassive(passive)
	for _, item := range passive {
		if _, ok := s.sources.Get(item.Source); ok {
			r.contributed = append(r.contributed, item.Source)
		}
	}

	if len(active) > 0 {
		results := s.sources.Query(r.ctx, active)
		diag.Active = datasource.Outcomes(results)
		for _, res := range results {
			metrics.DataSourceQueries.WithLabelValues(res.SourceID, metrics.Outcome(res.Success)).Inc()
			if res.Success {
				r.contributed = append(r.contributed, res.SourceID)
			} else {
				r.log.Warnf("数据源 %s 查询失败: %s", res.SourceID, res.Error)
			}
		}
		blocks = append(blocks, datasource.FormatResults(results)...)
	}

	// 数据块放在搜索结果之前
	r.blocks = append(blocks, r.blocks...)
	r.step(stepDataSources, model.StepDone, fmt.Sprintf("%d blocks", len(blocks)), diag)
}

// buildPrompt 组装系统提示词与增强后的消息，并按预算裁剪历史
func (s *ChatService) buildPrompt(r *pipelineRun, resp *model.UIResponse) provider.Request {
	r.step(stepPrompt, model.StepStart, "", nil)

	message := r.req.Message
	if len(r.blocks) > 0 {
		message = strings.Join(r.blocks, "\n\n") + "\n\nUser question: " + r.req.Message
	}
	message = r.locPrefix + message

	rules := ""
	if len(r.contributed) > 0 {
		rules = s.sources.RulesContext(r.contributed...)
	}
	system := s.systemPrompt(r.style, rules)

	maxBody := s.cfg.MaxBodyBytes
	if maxBody > 0 && r.autoStyle {
		var budget *model.BudgetDiagnostics
		r.style, system, maxBody, budget = s.fitBudget(r.style, rules, len(message))
		resp.Budget = budget
	}

	var turns []model.ChatTurn
	if r.useHistory {
		turns = history.Trim(r.req.History, len(system), len(message), maxBody)
	}
	if s.cfg.MaxBodyBytes > 0 {
		if resp.Budget == nil {
			resp.Budget = &model.BudgetDiagnostics{MaxBodyBytes: s.cfg.MaxBodyBytes, EffectiveBodyBytes: maxBody}
		}
		resp.Budget.HistoryKept = len(turns)
		if r.useHistory {
			resp.Budget.HistoryDropped = len(r.req.History) - len(turns)
		}
	}

	r.step(stepPrompt, model.StepDone, fmt.Sprintf("%d bytes", len(system)+len(message)), nil)
	return provider.Request{
		Message:      message,
		Model:        r.req.Model,
		History:      turns,
		SystemPrompt: system,
	}
}

func (s *ChatService) systemPrompt(style, rules string) string {
	system := s.styles.SystemPrompt(style, s.now())
	if rules != "" {
		system += "\n\n" + rules
	}
	return system
}
