package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a2ui-backend/internal/analyzer"
	"a2ui-backend/internal/config"
	"a2ui-backend/internal/datasource"
	"a2ui-backend/internal/model"
	"a2ui-backend/internal/tools"
)

func TestStreamChat_EventOrdering(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})

	ch, err := h.svc.StreamChat(context.Background(), baseRequest("iPhone vs Android"))
	require.NoError(t, err)
	events := collect(ch)
	require.NotEmpty(t, events)

	first := events[0]
	require.Equal(t, model.EventStep, first.Type)
	assert.Equal(t, stepTools, first.Step.ID)
	assert.Equal(t, model.StepStart, first.Step.Status)

	terminals := 0
	for i, ev := range events {
		if ev.Terminal() {
			terminals++
			assert.Equal(t, len(events)-1, i, "terminal event must be last")
		} else {
			assert.Equal(t, model.EventStep, ev.Type)
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Equal(t, model.EventComplete, events[len(events)-1].Type)
}

func TestValidate(t *testing.T) {
	h := newHarness(&fakeChat{})

	tests := []struct {
		name    string
		mutate  func(*model.ChatRequest)
		wantMsg string
	}{
		{"blank message", func(r *model.ChatRequest) { r.Message = "  " }, "Message is required"},
		{"long message", func(r *model.ChatRequest) { r.Message = strings.Repeat("a", MaxMessageChars+1) }, "Message exceeds"},
		{"bad role", func(r *model.ChatRequest) { r.History = []model.ChatTurn{{Role: "system", Content: "x"}} }, "history[0].role"},
		{"too much history", func(r *model.ChatRequest) { r.History = make([]model.ChatTurn, MaxHistoryTurns+1) }, "History exceeds"},
		{"data context without source", func(r *model.ChatRequest) { r.DataContext = []model.DataContextItem{{Data: 1}} }, "dataContext[0].source"},
		{"bad performance mode", func(r *model.ChatRequest) { r.PerformanceMode = "turbo" }, "Invalid performance mode 'turbo'"},
		{"no provider", func(r *model.ChatRequest) { r.Provider = "" }, noProviderChosen},
		{"no model", func(r *model.ChatRequest) { r.Model = "" }, noProviderChosen},
		{"unknown provider", func(r *model.ChatRequest) { r.Provider = "mystery" }, "Provider 'mystery' is not available"},
		{"unknown model", func(r *model.ChatRequest) { r.Model = "gpt-2" }, "Model 'gpt-2' is not available for provider 'openai'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest("hello there")
			tt.mutate(req)

			_, err := h.svc.StreamChat(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
			assert.Contains(t, err.Error(), tt.wantMsg)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, 400, reqErr.Status)
		})
	}

	assert.Empty(t, h.chat.calls, "validation must not reach the provider")
}

func TestChat_RuleFallbackWhenAnalyzerFails(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})

	resp, err := h.svc.Chat(context.Background(), baseRequest("iPhone vs Android"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.analyzer.calls)
	assert.Equal(t, "comparison", resp.Style)
	assert.Equal(t, ModeAuto, resp.PerformanceMode)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "rules", resp.Analysis.Method)

	// 规则判定需要搜索，但搜索未配置
	require.NotNil(t, resp.Search)
	assert.False(t, resp.Search.Searched)
	assert.Equal(t, string(tools.SearchNotConfigured), resp.Search.Reason)

	// comparison 优先级：alert > chart > data-table
	require.NotNil(t, resp.A2UI)
	var ids []string
	for _, c := range resp.A2UI.Components {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "c", "t"}, ids)
	assert.Equal(t, "done", resp.Text)
}

func TestChat_WeatherWithSearchAndLocation(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})
	h.search.available = true
	h.search.resp = &tools.SearchResponse{
		Success: true,
		Results: []tools.SearchResult{{Title: "Forecast", URL: "https://weather.example", Content: "Sunny, 21C"}},
	}

	req := baseRequest("weather today")
	req.UserLocation = &model.UserLocation{Lat: 40.7128, Lng: -74.006, Label: "New York"}

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "quick", resp.Style)

	require.NotNil(t, resp.Location)
	assert.True(t, resp.Location.Provided)
	assert.True(t, resp.Location.Attached)

	wantQuery := tools.RewriteSearchQuery("weather today", "New York", h.svc.now())
	require.Equal(t, []string{wantQuery}, h.search.queries)
	require.NotNil(t, resp.Search)
	assert.True(t, resp.Search.Searched)
	assert.True(t, resp.Search.Success)
	assert.Equal(t, 1, resp.Search.ResultsCount)

	msgs := h.chat.lastCall()
	user := msgs[len(msgs)-1].Content
	assert.True(t, strings.HasPrefix(user, "[User Location: New York (40.7128, -74.006)]\n"), user)
	assert.Contains(t, user, "Sunny, 21C")
	assert.True(t, strings.HasSuffix(user, "User question: weather today"), user)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "Current date: February 11, 2026."))
}

func TestChat_LocationNotAttached(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		location   *model.UserLocation
		geo        *bool
		wantReason string
		wantDiag   bool
	}{
		{"not needed", "capital of Peru", &model.UserLocation{Lat: 1, Lng: 2}, nil, "not_needed", true},
		{"disabled", "restaurants nearby", &model.UserLocation{Lat: 1, Lng: 2}, boolPtr(false), "disabled", true},
		{"not provided", "restaurants nearby", nil, nil, "not_provided", true},
		{"neither", "capital of Peru", nil, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeChat{replies: []string{okReply}})
			req := baseRequest(tt.message)
			req.UserLocation = tt.location
			req.EnableGeolocation = tt.geo

			resp, err := h.svc.Chat(context.Background(), req)
			require.NoError(t, err)

			if !tt.wantDiag {
				assert.Nil(t, resp.Location)
				return
			}
			require.NotNil(t, resp.Location)
			assert.False(t, resp.Location.Attached)
			assert.Equal(t, tt.wantReason, resp.Location.Reason)

			msgs := h.chat.lastCall()
			assert.NotContains(t, msgs[len(msgs)-1].Content, "[User Location")
		})
	}
}

func TestChat_UnavailableSourceIsNotQueried(t *testing.T) {
	crm := &fakeSource{id: "crm", available: false}
	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Sources = datasource.NewRegistry(time.Second, crm)
	})
	h.analyzer.result = &analyzer.Result{
		Analysis: &model.AnalysisResult{
			Style:       "analytical",
			DataSources: []model.DataSourceQuery{{Source: "crm", Endpoint: "/accounts"}},
		},
		Provider: "openai",
		Model:    "gpt-4.1-mini",
	}

	resp, err := h.svc.Chat(context.Background(), baseRequest("Pipeline by region"))
	require.NoError(t, err)

	assert.Equal(t, 0, crm.calls)
	require.NotNil(t, resp.DataSources)
	require.Len(t, resp.DataSources.Active, 1)
	assert.Equal(t, "crm", resp.DataSources.Active[0].Source)
	assert.False(t, resp.DataSources.Active[0].Success)
	assert.Equal(t, datasource.ErrSourceUnavailable, resp.DataSources.Active[0].Error)

	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "ai", resp.Analysis.Method)
	assert.Equal(t, "gpt-4.1-mini", resp.Analysis.Model)

	msgs := h.chat.lastCall()
	assert.NotContains(t, msgs[len(msgs)-1].Content, "[Data Source:")
}

func TestChat_DataBlocksPrecedeSearchAndRulesFollowContributors(t *testing.T) {
	crm := &fakeSource{id: "crm", rules: "Always cite account ids", available: true, data: map[string]any{"accounts": 3}}
	billing := &fakeSource{id: "billing", rules: "Amounts are in cents", available: true}
	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Sources = datasource.NewRegistry(time.Second, crm, billing)
	})
	h.search.available = true
	h.search.resp = &tools.SearchResponse{Success: true, Results: []tools.SearchResult{{Title: "News", URL: "https://n.example", Content: "latest"}}}
	h.analyzer.result = &analyzer.Result{Analysis: &model.AnalysisResult{
		Style:       "analytical",
		Search:      true,
		DataSources: []model.DataSourceQuery{{Source: "crm"}},
	}}

	req := baseRequest("How are our accounts doing")
	req.DataContext = []model.DataContextItem{{Source: "sheet", Label: "Q3 Sheet", Data: "revenue,10"}}

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, crm.calls)
	assert.Equal(t, 0, billing.calls)
	require.NotNil(t, resp.DataSources)
	assert.Equal(t, 1, resp.DataSources.Passive)
	require.Len(t, resp.DataSources.Active, 1)
	assert.True(t, resp.DataSources.Active[0].Success)

	msgs := h.chat.lastCall()
	user := msgs[len(msgs)-1].Content
	passiveAt := strings.Index(user, "[Data Source: Q3 Sheet]")
	activeAt := strings.Index(user, "[Data Source: crm source]")
	searchAt := strings.Index(user, "latest")
	require.True(t, passiveAt >= 0 && activeAt >= 0 && searchAt >= 0, user)
	assert.Less(t, passiveAt, activeAt)
	assert.Less(t, activeAt, searchAt)

	system := msgs[0].Content
	assert.Contains(t, system, "[Data Source Rules]")
	assert.Contains(t, system, "Always cite account ids")
	assert.NotContains(t, system, "Amounts are in cents")
}

func TestChat_DataSourcesDisabled(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})
	req := baseRequest("Summarise this")
	req.EnableDataSources = boolPtr(false)
	req.DataContext = []model.DataContextItem{{Source: "sheet", Data: "x"}}

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.DataSources)
	assert.Equal(t, "disabled", resp.DataSources.Reason)

	msgs := h.chat.lastCall()
	assert.Equal(t, "Summarise this", msgs[len(msgs)-1].Content)
}

func TestChat_ProviderTimeoutBecomesWarningAlert(t *testing.T) {
	h := newHarness(&fakeChat{block: true}, func(d *Deps) {
		d.Pipeline.GenerationTimeout = 20 * time.Millisecond
	})

	ch, err := h.svc.StreamChat(context.Background(), baseRequest("capital of Peru"))
	require.NoError(t, err)
	events := collect(ch)

	last := events[len(events)-1]
	require.Equal(t, model.EventComplete, last.Type)
	require.NotNil(t, last.Response.A2UI)
	require.Len(t, last.Response.A2UI.Components, 1)

	alert := last.Response.A2UI.Components[0]
	assert.Equal(t, "alert", alert.Type)
	assert.Equal(t, "warning", alert.Props["variant"])
	assert.Equal(t, "Request Timed Out", alert.Props["title"])
}

func TestChat_SearchFailureContinues(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})
	h.search.available = true
	h.search.resp = &tools.SearchResponse{Success: false, Error: tools.SearchRateLimit}

	resp, err := h.svc.Chat(context.Background(), baseRequest("latest bitcoin price"))
	require.NoError(t, err)

	require.NotNil(t, resp.Search)
	assert.True(t, resp.Search.Searched)
	assert.False(t, resp.Search.Success)
	assert.Equal(t, string(tools.SearchRateLimit), resp.Search.Error)
	assert.NotEmpty(t, resp.A2UI.Components)

	msgs := h.chat.lastCall()
	assert.Equal(t, "latest bitcoin price", msgs[len(msgs)-1].Content)
}

func TestChat_SearchDisabledByCaller(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})
	h.search.available = true
	req := baseRequest("latest bitcoin price")
	req.EnableWebSearch = boolPtr(false)

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Search)
	assert.Equal(t, "disabled", resp.Search.Reason)
	assert.Empty(t, h.search.queries)
}

func TestChat_StyleSelection(t *testing.T) {
	t.Run("explicit style wins", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}})
		req := baseRequest("iPhone vs Android")
		req.ContentStyle = "howto"

		resp, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "howto", resp.Style)
		assert.Equal(t, "explicit", resp.Analysis.Method)
	})

	t.Run("unknown explicit style falls back to default", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}})
		req := baseRequest("iPhone vs Android")
		req.ContentStyle = "baroque"

		resp, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "content", resp.Style)
		assert.Equal(t, "rules", resp.Analysis.Method)
	})

	t.Run("optimized skips analyzer and uses smallest style", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}})
		req := baseRequest("iPhone vs Android")
		req.PerformanceMode = ModeOptimized

		resp, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0, h.analyzer.calls)
		assert.Equal(t, h.svc.styles.BySize()[0], resp.Style)
		assert.Equal(t, ModeOptimized, resp.PerformanceMode)
	})

	t.Run("comprehensive ignores caller classifier toggle", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}})
		req := baseRequest("iPhone vs Android")
		req.PerformanceMode = ModeComprehensive
		req.EnableAIClassifier = boolPtr(false)

		_, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 1, h.analyzer.calls)
	})

	t.Run("environment lock beats comprehensive", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
			d.Gates = tools.NewGates(config.ToolsConfig{AIClassifier: "off"})
		})
		req := baseRequest("iPhone vs Android")
		req.PerformanceMode = ModeComprehensive

		resp, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0, h.analyzer.calls)
		assert.Equal(t, "rules", resp.Analysis.Method)
	})

	t.Run("auto respects caller classifier toggle", func(t *testing.T) {
		h := newHarness(&fakeChat{replies: []string{okReply}})
		req := baseRequest("iPhone vs Android")
		req.EnableAIClassifier = boolPtr(false)

		_, err := h.svc.Chat(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 0, h.analyzer.calls)
	})
}

func TestChat_HistoryToggle(t *testing.T) {
	history := []model.ChatTurn{
		{Role: "user", Content: "Tell me about Lima"},
		{Role: "assistant", Content: "Lima is the capital of Peru."},
	}

	h := newHarness(&fakeChat{replies: []string{okReply, okReply}})
	req := baseRequest("and its population?")
	req.History = history
	_, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, h.chat.lastCall(), 4)

	req.EnableHistory = boolPtr(false)
	_, err = h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, h.chat.lastCall(), 2)
}

func TestChat_BudgetHeadroom(t *testing.T) {
	const msg = "NVDA stock outlook"
	probe := newHarness(&fakeChat{})
	sysLen := len(probe.svc.systemPrompt("analytical", ""))
	maxBody := int(float64(sysLen)/0.6) + len(msg) - 50

	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Pipeline.MaxBodyBytes = maxBody
	})
	h.analyzer.result = &analyzer.Result{Analysis: &model.AnalysisResult{Style: "analytical"}}

	resp, err := h.svc.Chat(context.Background(), baseRequest(msg))
	require.NoError(t, err)

	assert.Equal(t, "analytical", resp.Style)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, BudgetHeadroom, resp.Budget.Action)
	assert.Equal(t, maxBody, resp.Budget.MaxBodyBytes)
	assert.Greater(t, resp.Budget.EffectiveBodyBytes, maxBody)
	assert.LessOrEqual(t, resp.Budget.EffectiveBodyBytes, maxBody+4096)
}

func TestChat_BudgetDowngrade(t *testing.T) {
	const msg = "NVDA stock outlook"
	probe := newHarness(&fakeChat{})
	smallest := probe.svc.styles.BySize()[0]
	maxBody := int(float64(len(probe.svc.systemPrompt(smallest, ""))+10)/0.6) + len(msg) + 2
	limit := int(float64(maxBody-len(msg)) * 0.6)

	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Pipeline.MaxBodyBytes = maxBody
		d.Pipeline.BudgetMode = BudgetDowngrade
	})
	h.analyzer.result = &analyzer.Result{Analysis: &model.AnalysisResult{Style: "analytical"}}

	resp, err := h.svc.Chat(context.Background(), baseRequest(msg))
	require.NoError(t, err)

	assert.NotEqual(t, "analytical", resp.Style)
	assert.LessOrEqual(t, len(h.svc.systemPrompt(resp.Style, "")), limit)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, BudgetDowngrade, resp.Budget.Action)
	assert.Equal(t, "analytical", resp.Budget.FromStyle)
	assert.Equal(t, maxBody, resp.Budget.EffectiveBodyBytes)
}

func TestChat_BudgetSkipsExplicitStyle(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Pipeline.MaxBodyBytes = 1000
		d.Pipeline.BudgetMode = BudgetDowngrade
	})
	req := baseRequest("NVDA stock outlook")
	req.ContentStyle = "analytical"

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "analytical", resp.Style)
	require.NotNil(t, resp.Budget)
	assert.Empty(t, resp.Budget.Action)
}

func TestChat_BudgetAppliesToUnknownStyle(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}}, func(d *Deps) {
		d.Pipeline.MaxBodyBytes = 1000
	})
	req := baseRequest("NVDA stock outlook")
	req.ContentStyle = "baroque"

	resp, err := h.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "content", resp.Style)
	assert.NotEqual(t, "explicit", resp.Analysis.Method)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, BudgetHeadroom, resp.Budget.Action)
}

func TestChat_PanicBecomesErrorEvent(t *testing.T) {
	h := newHarness(&fakeChat{replies: []string{okReply}})
	h.analyzer.panics = true

	ch, err := h.svc.StreamChat(context.Background(), baseRequest("iPhone vs Android"))
	require.NoError(t, err)
	events := collect(ch)

	last := events[len(events)-1]
	assert.Equal(t, model.EventError, last.Type)
	assert.Equal(t, genericFailure, last.Error)

	_, err = h.svc.Chat(context.Background(), baseRequest("iPhone vs Android"))
	assert.EqualError(t, err, genericFailure)
}
