// Package analyzer 意图分析：用快速模型判断风格、搜索与定位需求，失败时回退到规则。
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/config"
	"a2ui-backend/internal/model"
	"a2ui-backend/internal/provider"
	"a2ui-backend/internal/styles"
	"a2ui-backend/internal/tools"
	"a2ui-backend/pkg/logger"
)

const (
	recentTurns   = 4
	turnCharLimit = 200
	maxTokens     = 500
)

// Result 分析结果以及给出结果的候选模型
type Result struct {
	Analysis *model.AnalysisResult
	Provider string
	Model    string
}

type Analyzer struct {
	providers  *provider.Registry
	styles     *styles.Registry
	candidates []config.CandidateConfig
	timeout    time.Duration
	now        func() time.Time
}

func New(providers *provider.Registry, styleRegistry *styles.Registry, candidates []config.CandidateConfig, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Analyzer{
		providers:  providers,
		styles:     styleRegistry,
		candidates: candidates,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Analyze 依次尝试候选模型；全部失败返回 nil，由调用方走规则回退
func (a *Analyzer) Analyze(ctx context.Context, message string, history []model.ChatTurn, dataSources string) *Result {
	system := a.systemPrompt(dataSources)
	user := userPrompt(message, history)

	for _, c := range a.candidates {
		p, ok := a.providers.Get(c.Provider)
		if !ok {
			continue
		}

		log := logger.WithFields(logger.Fields{"provider": c.Provider, "model": c.Model})
		analysis, err := a.try(ctx, p, c.Model, system, user)
		if err != nil {
			log.Warnf("意图分析失败，尝试下一个候选: %v", err)
			continue
		}
		log.Infof("意图分析: style=%s search=%v location=%v data_sources=%d",
			analysis.Style, analysis.Search, analysis.Location, len(analysis.DataSources))
		return &Result{Analysis: analysis, Provider: c.Provider, Model: c.Model}
	}

	logger.Warn("所有意图分析候选均不可用或失败")
	return nil
}

func (a *Analyzer) try(ctx context.Context, p *provider.Provider, modelID, system, user string) (*model.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	opts := p.CallOptionsFor(modelID)
	opts.MaxTokens = maxTokens
	if opts.Temperature != nil {
		zero := float32(0)
		opts.Temperature = &zero
	}

	raw, err := p.Complete(ctx, modelID, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, &opts)
	if err != nil {
		return nil, err
	}
	return a.parse(raw)
}

// parse 拒绝非 JSON 输出与未注册的风格
func (a *Analyzer) parse(raw string) (*model.AnalysisResult, error) {
	obj := a2ui.Extract(raw)
	if _, ok := obj["style"]; !ok {
		return nil, fmt.Errorf("analyzer output is not a JSON analysis: %.120s", raw)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	result.Style = strings.TrimSpace(result.Style)
	if !a.styles.Has(result.Style) {
		return nil, fmt.Errorf("analyzer chose unregistered style %q", result.Style)
	}
	result.SearchQuery = strings.TrimSpace(result.SearchQuery)

	queries := result.DataSources[:0]
	for _, q := range result.DataSources {
		if strings.TrimSpace(q.Source) != "" {
			queries = append(queries, q)
		}
	}
	result.DataSources = queries
	return &result, nil
}

func (a *Analyzer) systemPrompt(dataSources string) string {
	var b strings.Builder
	b.WriteString("You classify a chat message for a UI-generating assistant. Respond with ONLY a JSON object:\n")
	b.WriteString(`{"style":"<style id>","search":<bool>,"location":<bool>,"search_query":"<web search query or empty>","data_sources":[{"source":"<id>","endpoint":"<path, tool or question>","method":"GET","params":{}}]}`)
	b.WriteString("\n\nStyles:\n")
	b.WriteString(a.styles.Catalog())
	b.WriteString("\n\nRules:\n")
	b.WriteString("- search=true when the answer depends on current, recent, or real-world facts (prices, news, weather, events, local places).\n")
	b.WriteString("- location=true only when the answer depends on where the user is (weather, nearby places, local events).\n")
	b.WriteString("- search_query: a concise search-engine query with typos fixed and filler removed; add the date for time-sensitive topics.\n")
	b.WriteString("- data_sources: only sources listed below, only when they can answer the question; otherwise an empty list.\n")
	b.WriteString("\nToday's date: ")
	b.WriteString(a.now().Format("January 2, 2006"))
	if dataSources != "" {
		b.WriteString("\n\n")
		b.WriteString(dataSources)
	}
	return b.String()
}

func userPrompt(message string, history []model.ChatTurn) string {
	if len(history) > recentTurns {
		history = history[len(history)-recentTurns:]
	}
	if len(history) == 0 {
		return "Message: " + message
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, turn := range history {
		content := []rune(turn.Content)
		if len(content) > turnCharLimit {
			content = content[:turnCharLimit]
		}
		fmt.Fprintf(&b, "  %s: %s\n", turn.Role, string(content))
	}
	b.WriteString("\nMessage: ")
	b.WriteString(message)
	return b.String()
}

// Fallback 规则回退：风格分类、搜索与定位需求
func Fallback(message string) *model.AnalysisResult {
	style, _ := styles.Classify(message)
	return &model.AnalysisResult{
		Style:    style,
		Search:   tools.ShouldSearch(message),
		Location: tools.NeedsLocation(message),
	}
}
