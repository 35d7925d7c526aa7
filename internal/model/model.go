package model

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

// maskKey 日志中只展示密钥前缀
func maskKey(key string) string {
	if len(key) > 10 {
		return key[:10] + "..."
	}
	if key == "" {
		return "(empty)"
	}
	return "***"
}

// NewDoubaoChatModel 火山方舟（豆包）模型，关闭深度思考
func NewDoubaoChatModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("使用 Doubao 模型: %s, API Key: %s", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

// NewQwenChatModel 通义千问（DashScope 兼容模式）
func NewQwenChatModel(ctx context.Context, cfg config.ProviderConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("使用 Qwen 模型: %s, BaseURL: %s, API Key: %s", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	httpClient := utils.NewHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.DebugRequests, "qwen")

	maxTokens := DefaultMaxTokens
	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxTokens:  &maxTokens,
		Timeout:    cfg.Timeout,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}
