package provider

import (
	"context"

	einoModel "github.com/cloudwego/eino/components/model"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/model"
)

var (
	openAIModels = []ModelInfo{
		{ID: "gpt-4.1", Name: "GPT-4.1"},
		{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini (Fast)"},
		{ID: "gpt-5", Name: "GPT-5"},
		{ID: "gpt-5-mini", Name: "GPT-5 Mini"},
	}
	liteLLMModels = []ModelInfo{
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini (Fast)"},
		{ID: "gpt-4.1", Name: "GPT-4.1"},
		{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini"},
		{ID: "gpt-5", Name: "GPT-5"},
		{ID: "gpt-5-nano", Name: "GPT-5 Nano (Fast)"},
		{ID: "o4-mini", Name: "o4 Mini (Reasoning)"},
		{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5"},
		{ID: "gpt-4o", Name: "GPT-4o"},
	}
	anthropicModels = []ModelInfo{
		{ID: "claude-opus-4-6", Name: "Claude Opus 4.6"},
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet"},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku (Fast)"},
	}
	geminiModels = []ModelInfo{
		{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro"},
		{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash"},
		{ID: "gemini-2.5-pro-preview-05-06", Name: "Gemini 2.5 Pro"},
		{ID: "gemini-2.5-flash-preview-05-20", Name: "Gemini 2.5 Flash"},
	}
	doubaoModels = []ModelInfo{
		{ID: "doubao-seed-1-6-250615", Name: "Doubao Seed 1.6"},
		{ID: "doubao-seed-1-6-flash-250615", Name: "Doubao Seed 1.6 Flash (Fast)"},
		{ID: "doubao-1-5-pro-32k-250115", Name: "Doubao 1.5 Pro 32k"},
	}
	qwenModels = []ModelInfo{
		{ID: "qwen-max", Name: "Qwen Max"},
		{ID: "qwen-plus", Name: "Qwen Plus"},
		{ID: "qwen-turbo", Name: "Qwen Turbo (Fast)"},
	}
)

// FromConfig 按展示顺序构建全部内置供应商；未配置凭证的供应商仍会注册但不可用
func FromConfig(cfg config.ProvidersConfig) []*Provider {
	return []*Provider{
		New(Spec{
			ID: "litellm", Name: "Exploration Lab", Models: liteLLMModels,
			APIKey: cfg.LiteLLM.APIKey, CredentialEnv: "LITELLM_API_KEY",
			Factory: openAIFactory(cfg.LiteLLM), Quirks: OpenAICompatible,
		}),
		New(Spec{
			ID: "openai", Name: "OpenAI", Models: openAIModels,
			APIKey: cfg.OpenAI.APIKey, CredentialEnv: "OPENAI_API_KEY",
			Factory: openAIFactory(cfg.OpenAI), Quirks: OpenAICompatible,
		}),
		New(Spec{
			ID: "anthropic", Name: "Anthropic", Models: anthropicModels,
			APIKey: cfg.Anthropic.APIKey, CredentialEnv: "ANTHROPIC_API_KEY",
			Factory: func(context.Context) (einoModel.BaseChatModel, error) {
				return model.NewAnthropicChatModel(cfg.Anthropic), nil
			},
			Quirks: Anthropic,
		}),
		New(Spec{
			ID: "gemini", Name: "Google", Models: geminiModels,
			APIKey: cfg.Gemini.APIKey, CredentialEnv: "GEMINI_API_KEY",
			Factory: func(context.Context) (einoModel.BaseChatModel, error) {
				return model.NewGeminiChatModel(cfg.Gemini), nil
			},
			Quirks: Gemini,
		}),
		New(Spec{
			ID: "doubao", Name: "Doubao", Models: doubaoModels,
			APIKey: cfg.Doubao.APIKey, CredentialEnv: "ARK_API_KEY",
			Factory: func(ctx context.Context) (einoModel.BaseChatModel, error) {
				return model.NewDoubaoChatModel(ctx, cfg.Doubao)
			},
			Quirks: PlainText,
		}),
		New(Spec{
			ID: "qwen", Name: "Qwen", Models: qwenModels,
			APIKey: cfg.Qwen.APIKey, CredentialEnv: "DASHSCOPE_API_KEY",
			Factory: func(ctx context.Context) (einoModel.BaseChatModel, error) {
				return model.NewQwenChatModel(ctx, cfg.Qwen)
			},
			Quirks: PlainText,
		}),
	}
}

func openAIFactory(cfg config.ProviderConfig) Factory {
	return func(context.Context) (einoModel.BaseChatModel, error) {
		return model.NewOpenAIChatModel(cfg), nil
	}
}
