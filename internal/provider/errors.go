package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/model"
)

// Kind 上游错误分类
type Kind string

const (
	KindAuth       Kind = "auth"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindRateLimit  Kind = "rate_limit"
	KindTimeout    Kind = "timeout"
	KindGeneric    Kind = "generic"
	KindEmpty      Kind = "empty"
)

// Transient 可通过重试或换模型恢复
func (k Kind) Transient() bool {
	return k == KindRateLimit || k == KindTimeout || k == KindEmpty
}

// Error 归一化后的上游错误
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var statusInText = regexp.MustCompile(`status code: (\d{3})`)

type httpStatuser interface {
	HTTPStatus() int
}

// Classify 把适配器返回的错误映射到 Kind
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, model.ErrNoChoices) {
		return &Error{Kind: KindEmpty, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}

	status := 0
	message := err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var statusErr *model.StatusError
	var statuser httpStatuser
	switch {
	case errors.As(err, &apiErr):
		status, message = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &statusErr):
		status, message = statusErr.Code, statusErr.Message
	case errors.As(err, &statuser):
		status = statuser.HTTPStatus()
	default:
		// 其他 SDK 只能从错误文本里取状态码
		if m := statusInText.FindStringSubmatch(message); m != nil {
			status, _ = strconv.Atoi(m[1])
		}
	}

	return &Error{Kind: kindForStatus(status), Status: status, Message: message}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	}
	return KindGeneric
}

// Alert 把错误转换为单个 alert 组件的负载；上游原文只在 generic 时透出且会被清洗
func (e *Error) Alert(p *Provider, modelID string) map[string]any {
	switch e.Kind {
	case KindAuth:
		return a2ui.ErrorResponse("Authentication Error",
			fmt.Sprintf("Your %s API key is invalid or expired. Please check %s.", p.Name(), p.credentialEnv), a2ui.VariantError)
	case KindPermission:
		return a2ui.ErrorResponse("Access Denied",
			fmt.Sprintf("The model '%s' is not available on %s. Try a different model, or check that you're on the corporate network/VPN.", modelID, p.Name()), a2ui.VariantError)
	case KindNotFound:
		return a2ui.ErrorResponse("Model Not Found",
			fmt.Sprintf("The model '%s' was not found on %s. Try a different model.", modelID, p.Name()), a2ui.VariantError)
	case KindRateLimit:
		return a2ui.ErrorResponse("Rate Limited",
			"Too many requests. Please wait a moment and try again.", a2ui.VariantWarning)
	case KindTimeout:
		return a2ui.ErrorResponse("Request Timed Out",
			"The AI took too long to respond. Please try again or switch to a faster model.", a2ui.VariantWarning)
	case KindEmpty:
		return a2ui.ErrorResponse("Empty Response",
			"The AI returned an empty response. Please try again or switch models.", a2ui.VariantWarning)
	}
	return a2ui.ErrorResponse(p.Name()+" Error", e.Message, a2ui.VariantError)
}
