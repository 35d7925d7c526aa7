package provider

import (
	"strings"

	"a2ui-backend/internal/model"
)

const defaultTemperature float32 = 0.7

// Quirks 按模型名决定单次调用参数
type Quirks func(modelID string) model.CallOptions

func isReasoning(m string) bool {
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

// OpenAICompatible OpenAI 官方与 LiteLLM 网关共用
//   - o1/o3/o4：max_completion_tokens，无 temperature，无 JSON 模式
//   - gpt-5*：max_completion_tokens，无 temperature
//   - claude-*（经网关）：不支持 response_format
func OpenAICompatible(modelID string) model.CallOptions {
	switch {
	case isReasoning(modelID):
		return model.CallOptions{MaxTokens: model.DefaultMaxTokens, UseMaxCompletionTokens: true}
	case strings.HasPrefix(modelID, "gpt-5"):
		return model.CallOptions{MaxTokens: model.DefaultMaxTokens, UseMaxCompletionTokens: true, JSONMode: true}
	}
	t := defaultTemperature
	return model.CallOptions{
		MaxTokens:   model.DefaultMaxTokens,
		Temperature: &t,
		JSONMode:    !strings.HasPrefix(modelID, "claude-"),
	}
}

func Anthropic(string) model.CallOptions {
	return model.CallOptions{MaxTokens: model.DefaultMaxTokens}
}

func Gemini(string) model.CallOptions {
	return model.CallOptions{MaxTokens: model.DefaultMaxTokens, JSONMode: true}
}

// PlainText 不支持强制 JSON 输出的模型族
func PlainText(string) model.CallOptions {
	t := defaultTemperature
	return model.CallOptions{MaxTokens: model.DefaultMaxTokens, Temperature: &t}
}
