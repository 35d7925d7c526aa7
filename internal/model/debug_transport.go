package model

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"a2ui-backend/pkg/logger"
)

var sensitiveHeaders = []string{"authorization", "x-api-key", "x-goog-api-key", "x-auth-token", "cookie"}

var sensitiveFieldPattern = regexp.MustCompile(`(?i)("(?:api_?key|password|secret|token)"\s*:\s*)"[^"]*"`)

// DebugTransport 在 debug 级别记录上游请求，敏感请求头与 JSON 字段会被隐藏
type DebugTransport struct {
	base    http.RoundTripper
	enabled bool
	name    string
}

func NewDebugTransport(base http.RoundTripper, enabled bool, name string) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, enabled: enabled, name: name}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled && req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.Errorf("[%s debug] 请求失败: %v", t.name, err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logger.Fields{
		"provider": t.name,
		"method":   req.Method,
		"url":      redactQuery(req.URL.String()),
	}

	headers := make([]string, 0, len(req.Header))
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			headers = append(headers, name+": [REDACTED]")
			continue
		}
		headers = append(headers, name+": "+strings.Join(values, ", "))
	}
	fields["headers"] = headers

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("[%s debug] 读取请求体失败: %v", t.name, err)
			return
		}
		// 恢复请求体
		req.Body = io.NopCloser(bytes.NewReader(body))
		fields["body_bytes"] = len(body)
		fields["body"] = RedactJSON(string(body))
	}

	logger.WithFields(fields).Debug("上游请求")
}

// RedactJSON 替换敏感字段的值
func RedactJSON(s string) string {
	return sensitiveFieldPattern.ReplaceAllString(s, `$1"[REDACTED]"`)
}

var keyQueryPattern = regexp.MustCompile(`([?&]key=)[^&]*`)

func redactQuery(u string) string {
	return keyQueryPattern.ReplaceAllString(u, `${1}[REDACTED]`)
}

func isSensitiveHeader(name string) bool {
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
