package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"a2ui-backend/internal/model"
)

const (
	MaxMessageChars  = 10000
	MaxHistoryTurns  = 50
	MaxDataContext   = 20
	noProviderChosen = "No LLM provider selected. Choose a provider and model from the dropdown."
)

// 性能模式
const (
	ModeAuto          = "auto"
	ModeComprehensive = "comprehensive"
	ModeOptimized     = "optimized"
)

// Validate 只做调用方错误检查，不访问任何外部服务
func (s *ChatService) Validate(req *model.ChatRequest) error {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return badRequest("Message is required")
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageChars {
		return badRequest(fmt.Sprintf("Message exceeds maximum of %d characters", MaxMessageChars))
	}

	if len(req.History) > MaxHistoryTurns {
		return badRequest(fmt.Sprintf("History exceeds maximum of %d messages", MaxHistoryTurns))
	}
	for i, turn := range req.History {
		if turn.Role != "user" && turn.Role != "assistant" {
			return badRequest(fmt.Sprintf("history[%d].role must be 'user' or 'assistant'", i))
		}
		if utf8.RuneCountInString(turn.Content) > MaxMessageChars {
			return badRequest(fmt.Sprintf("history[%d].content exceeds maximum of %d characters", i, MaxMessageChars))
		}
	}

	if len(req.DataContext) > MaxDataContext {
		return badRequest(fmt.Sprintf("dataContext exceeds maximum of %d items", MaxDataContext))
	}
	for i, item := range req.DataContext {
		if strings.TrimSpace(item.Source) == "" {
			return badRequest(fmt.Sprintf("dataContext[%d].source is required", i))
		}
	}

	switch req.PerformanceMode {
	case "", ModeAuto, ModeComprehensive, ModeOptimized:
	default:
		return badRequest(fmt.Sprintf("Invalid performance mode '%s'", req.PerformanceMode))
	}

	if req.Provider == "" || req.Model == "" {
		return badRequest(noProviderChosen)
	}
	p, ok := s.providers.Get(req.Provider)
	if !ok {
		return badRequest(fmt.Sprintf("Provider '%s' is not available", req.Provider))
	}
	if !p.HasModel(req.Model) {
		return badRequest(fmt.Sprintf("Model '%s' is not available for provider '%s'", req.Model, req.Provider))
	}
	return nil
}
