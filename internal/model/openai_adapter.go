package model

import (
	"context"
	"errors"
	"io"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

// OpenAIChatModel OpenAI 兼容接口（OpenAI 官方与 LiteLLM 网关）
type OpenAIChatModel struct {
	client *openai.Client
	model  string
}

func NewOpenAIChatModel(cfg config.ProviderConfig) *OpenAIChatModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	httpClient := utils.NewHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	httpClient.Transport = NewDebugTransport(httpClient.Transport, cfg.DebugRequests, "openai")
	clientConfig.HTTPClient = httpClient

	return &OpenAIChatModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (m *OpenAIChatModel) buildRequest(messages []*schema.Message, opts []einoModel.Option) openai.ChatCompletionRequest {
	model, call := resolveOptions(m.model, opts)

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertOpenAIMessages(messages),
	}
	if call.UseMaxCompletionTokens {
		req.MaxCompletionTokens = call.MaxTokens
	} else {
		req.MaxTokens = call.MaxTokens
	}
	if call.Temperature != nil {
		req.Temperature = *call.Temperature
	}
	if call.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	req := m.buildRequest(messages, opts)
	logger.Debugf("OpenAI 请求: model=%s messages=%d", req.Model, len(req.Messages))

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		},
	}, nil
}

func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	req := m.buildRequest(messages, opts)
	req.Stream = true

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[*schema.Message](100)
	go func() {
		defer writer.Close()
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				writer.Send(nil, err)
				return
			}
			if len(response.Choices) > 0 && response.Choices[0].Delta.Content != "" {
				if closed := writer.Send(&schema.Message{
					Role:    schema.Assistant,
					Content: response.Choices[0].Delta.Content,
				}, nil); closed {
					return
				}
			}
		}
	}()

	return reader, nil
}

// convertOpenAIMessages 跳过空的 assistant 消息，部分网关会因此报错
func convertOpenAIMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.System:
			role = openai.ChatMessageRoleSystem
		}
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant {
			continue
		}
		result = append(result, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return result
}
