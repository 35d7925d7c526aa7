package model

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/utils"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicChatModel Messages API；system 消息单独放在顶层字段
type AnthropicChatModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewAnthropicChatModel(cfg config.ProviderConfig) *AnthropicChatModel {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	client := utils.NewHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	client.Transport = NewDebugTransport(client.Transport, cfg.DebugRequests, "anthropic")

	return &AnthropicChatModel{client: client, baseURL: baseURL, apiKey: cfg.APIKey, model: cfg.Model}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (m *AnthropicChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	model, call := resolveOptions(m.model, opts)

	req := anthropicRequest{
		Model:       model,
		MaxTokens:   call.MaxTokens,
		Temperature: call.Temperature,
	}
	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			if msg.Content != "" {
				req.Messages = append(req.Messages, anthropicMessage{Role: "assistant", Content: msg.Content})
			}
		default:
			req.Messages = append(req.Messages, anthropicMessage{Role: "user", Content: msg.Content})
		}
	}
	req.System = strings.Join(system, "\n\n")

	headers := map[string]string{
		"x-api-key":         m.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, m.client, "Anthropic", m.baseURL+"/v1/messages", headers, req, &resp, anthropicErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, ErrNoChoices
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: text.String(),
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: resp.StopReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.InputTokens,
				CompletionTokens: resp.Usage.OutputTokens,
				TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		},
	}, nil
}

// Stream 不支持增量输出，整体生成后一次性返回
func (m *AnthropicChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func anthropicErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}
