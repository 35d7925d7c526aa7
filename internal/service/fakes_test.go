package service

import (
	"context"
	"errors"
	"sync"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/analyzer"
	"a2ui-backend/internal/config"
	"a2ui-backend/internal/datasource"
	"a2ui-backend/internal/model"
	"a2ui-backend/internal/provider"
	"a2ui-backend/internal/styles"
	"a2ui-backend/internal/tools"
)

// fakeChat 按顺序返回脚本化回复；block 为 true 时一直等到 ctx 结束
type fakeChat struct {
	mu      sync.Mutex
	replies []string
	block   bool
	calls   [][]*schema.Message
}

func (f *fakeChat) Generate(ctx context.Context, msgs []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	block := f.block
	var content string
	if len(f.replies) > 0 {
		content = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if content == "" {
		return nil, errors.New("no scripted reply")
	}
	return &schema.Message{Role: schema.Assistant, Content: content}, nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("unsupported")
}

func (f *fakeChat) lastCall() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeAnalyzer struct {
	result *analyzer.Result
	panics bool
	calls  int
}

func (f *fakeAnalyzer) Analyze(context.Context, string, []model.ChatTurn, string) *analyzer.Result {
	f.calls++
	if f.panics {
		panic("analyzer exploded")
	}
	return f.result
}

type fakeSearcher struct {
	available bool
	resp      *tools.SearchResponse
	queries   []string
}

func (f *fakeSearcher) Available() bool { return f.available }

func (f *fakeSearcher) Search(_ context.Context, query string) *tools.SearchResponse {
	f.queries = append(f.queries, query)
	return f.resp
}

type fakeSource struct {
	id        string
	rules     string
	available bool
	data      any
	calls     int
}

func (f *fakeSource) ID() string               { return f.id }
func (f *fakeSource) Name() string             { return f.id + " source" }
func (f *fakeSource) Description() string      { return "test source" }
func (f *fakeSource) Rules() string            { return f.rules }
func (f *fakeSource) Type() string             { return "rest" }
func (f *fakeSource) Enabled() bool            { return true }
func (f *fakeSource) Available() bool          { return f.available }
func (f *fakeSource) EndpointsSummary() string { return "" }

func (f *fakeSource) Query(context.Context, string, map[string]any, string) *datasource.Result {
	f.calls++
	return &datasource.Result{Success: true, Data: f.data, RecordCount: 1}
}

const okReply = `{"text":"done","a2ui":{"version":"1.0","components":[` +
	`{"id":"t","type":"data-table","props":{}},{"id":"c","type":"chart","props":{}},{"id":"a","type":"alert","props":{"variant":"info"}}]}}`

type harness struct {
	svc      *ChatService
	chat     *fakeChat
	analyzer *fakeAnalyzer
	search   *fakeSearcher
}

type option func(*Deps)

func newHarness(chat *fakeChat, opts ...option) *harness {
	h := &harness{chat: chat, analyzer: &fakeAnalyzer{}, search: &fakeSearcher{}}
	p := provider.New(provider.Spec{
		ID: "openai", Name: "OpenAI", APIKey: "k", CredentialEnv: "OPENAI_API_KEY",
		Models:  []provider.ModelInfo{{ID: "gpt-4.1", Name: "GPT-4.1"}, {ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini"}},
		Factory: func(context.Context) (einoModel.BaseChatModel, error) { return chat, nil },
		Quirks:  provider.OpenAICompatible,
	})
	d := Deps{
		Pipeline: config.PipelineConfig{
			DefaultStyle:           styles.DefaultStyle,
			DefaultPerformanceMode: ModeAuto,
			BudgetMode:             BudgetHeadroom,
			PromptBudgetFraction:   0.6,
			HeadroomBytes:          4096,
			GenerationTimeout:      time.Second,
			SearchTimeout:          time.Second,
		},
		Styles:    styles.New(styles.DefaultStyle),
		Providers: provider.NewRegistry(a2ui.NewRefusalDetector(nil), p),
		Analyzer:  h.analyzer,
		Search:    h.search,
		Gates:     tools.NewGates(config.ToolsConfig{}),
		Now:       func() time.Time { return time.Date(2026, time.February, 11, 12, 0, 0, 0, time.UTC) },
	}
	for _, o := range opts {
		o(&d)
	}
	h.svc = NewChatService(d)
	return h
}

func baseRequest(message string) *model.ChatRequest {
	return &model.ChatRequest{Message: message, Provider: "openai", Model: "gpt-4.1"}
}

func collect(ch <-chan model.StreamEvent) []model.StreamEvent {
	var out []model.StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
