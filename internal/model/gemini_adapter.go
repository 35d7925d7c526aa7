package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/utils"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiChatModel generateContent 接口；assistant 角色映射为 model
type GeminiChatModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGeminiChatModel(cfg config.ProviderConfig) *GeminiChatModel {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	client := utils.NewHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	client.Transport = NewDebugTransport(client.Transport, cfg.DebugRequests, "gemini")

	return &GeminiChatModel{client: client, baseURL: baseURL, apiKey: cfg.APIKey, model: cfg.Model}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	Temperature      *float32 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (m *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	model, call := resolveOptions(m.model, opts)

	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: call.MaxTokens,
			Temperature:     call.Temperature,
		},
	}
	if call.JSONMode {
		req.GenerationConfig.ResponseMimeType = "application/json"
	}

	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			if msg.Content != "" {
				req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
			}
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", m.baseURL, url.PathEscape(model))
	headers := map[string]string{"x-goog-api-key": m.apiKey}

	var resp geminiResponse
	if err := postJSON(ctx, m.client, "Gemini", endpoint, headers, req, &resp, geminiErrorMessage); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoChoices
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: text.String(),
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: candidate.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.UsageMetadata.PromptTokenCount,
				CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			},
		},
	}, nil
}

func (m *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func geminiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}
