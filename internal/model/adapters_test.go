package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a2ui-backend/internal/config"
)

func conversation() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage("be helpful"),
		schema.UserMessage("first"),
		{Role: schema.Assistant, Content: ""},
		schema.AssistantMessage("reply", nil),
		schema.UserMessage("second"),
	}
}

func captureServer(t *testing.T, status int, response string, captured *map[string]any, headers *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			require.NoError(t, json.Unmarshal(body, captured))
		}
		if headers != nil {
			*headers = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChatModel_Generate(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, &body, nil)

	m := NewOpenAIChatModel(config.ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o"})
	msg, err := m.Generate(context.Background(), conversation(),
		einoModel.WithModel("o3-mini"),
		WithCallOptions(CallOptions{MaxTokens: 1234, UseMaxCompletionTokens: true, JSONMode: true}))
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, msg.Content)
	assert.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "o3-mini", body["model"])
	assert.EqualValues(t, 1234, body["max_completion_tokens"])
	assert.NotContains(t, body, "max_tokens")
	assert.NotContains(t, body, "temperature")
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	// 空 assistant 消息被跳过
	assert.Len(t, body["messages"], 4)
}

func TestOpenAIChatModel_TemperatureAndMaxTokens(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, http.StatusOK, `{"choices": [{"message": {"role": "assistant", "content": "x"}, "finish_reason": "length"}]}`, &body, nil)

	m := NewOpenAIChatModel(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o"})
	temp := float32(0.3)
	msg, err := m.Generate(context.Background(), conversation(), WithCallOptions(CallOptions{MaxTokens: 500, Temperature: &temp}))
	require.NoError(t, err)

	assert.Equal(t, "length", msg.ResponseMeta.FinishReason)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 500, body["max_tokens"])
	assert.InDelta(t, 0.3, body["temperature"], 0.001)
	assert.NotContains(t, body, "response_format")
}

func TestOpenAIChatModel_ErrorPassthrough(t *testing.T) {
	srv := captureServer(t, http.StatusUnauthorized, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`, nil, nil)

	m := NewOpenAIChatModel(config.ProviderConfig{APIKey: "bad", BaseURL: srv.URL, Model: "gpt-4o"})
	_, err := m.Generate(context.Background(), conversation())
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}

func TestOpenAIChatModel_NoChoices(t *testing.T) {
	srv := captureServer(t, http.StatusOK, `{"choices": []}`, nil, nil)

	m := NewOpenAIChatModel(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o"})
	_, err := m.Generate(context.Background(), conversation())
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestAnthropicChatModel_Generate(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := captureServer(t, http.StatusOK, `{
		"content": [{"type": "text", "text": "{\"a\":"}, {"type": "text", "text": "1}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 20, "output_tokens": 7}
	}`, &body, &headers)

	m := NewAnthropicChatModel(config.ProviderConfig{APIKey: "ant-key", BaseURL: srv.URL + "/", Model: "claude-sonnet-4-20250514"})
	msg, err := m.Generate(context.Background(), conversation(), WithCallOptions(CallOptions{JSONMode: true}))
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, msg.Content)
	assert.Equal(t, "end_turn", msg.ResponseMeta.FinishReason)
	assert.Equal(t, 27, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "ant-key", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "be helpful", body["system"])
	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
	assert.Len(t, body["messages"], 3)
}

func TestAnthropicChatModel_StatusError(t *testing.T) {
	srv := captureServer(t, 529, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`, nil, nil)

	m := NewAnthropicChatModel(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Model: "claude"})
	_, err := m.Generate(context.Background(), conversation())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 529, statusErr.HTTPStatus())
	assert.Equal(t, "Overloaded", statusErr.Message)
}

func TestGeminiChatModel_Generate(t *testing.T) {
	var body map[string]any
	var path string
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "hello"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 1, "totalTokenCount": 4}
		}`)
	}))
	defer srv.Close()

	m := NewGeminiChatModel(config.ProviderConfig{APIKey: "g-key", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	msg, err := m.Generate(context.Background(), conversation(), WithCallOptions(CallOptions{MaxTokens: 800, JSONMode: true}))
	require.NoError(t, err)

	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "STOP", msg.ResponseMeta.FinishReason)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", path)
	assert.Equal(t, "g-key", key)

	contents := body["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])

	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.EqualValues(t, 800, gen["maxOutputTokens"])
	assert.NotNil(t, body["systemInstruction"])
}

func TestGeminiChatModel_StatusError(t *testing.T) {
	srv := captureServer(t, http.StatusTooManyRequests, `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`, nil, nil)

	m := NewGeminiChatModel(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	_, err := m.Generate(context.Background(), conversation())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "Resource has been exhausted")
}

func TestGeminiChatModel_Stream(t *testing.T) {
	srv := captureServer(t, http.StatusOK, `{"candidates": [{"content": {"parts": [{"text": "streamed"}]}, "finishReason": "STOP"}]}`, nil, nil)

	m := NewGeminiChatModel(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	reader, err := m.Stream(context.Background(), conversation())
	require.NoError(t, err)
	defer reader.Close()

	msg, err := reader.Recv()
	require.NoError(t, err)
	assert.Equal(t, "streamed", msg.Content)

	_, err = reader.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRedactJSON(t *testing.T) {
	in := `{"api_key": "sk-123", "apiKey":"abc", "Token": "t", "query": "token"}`
	out := RedactJSON(in)
	assert.NotContains(t, out, "sk-123")
	assert.NotContains(t, out, `"abc"`)
	assert.Contains(t, out, `"query": "token"`)
	assert.Equal(t, 3, strings.Count(out, "[REDACTED]"))

	assert.Equal(t, "https://x/y?key=[REDACTED]&alt=json", redactQuery("https://x/y?key=secret&alt=json"))
}
