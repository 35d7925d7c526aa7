// Package datasource 外部数据源连接器：REST、Databricks Genie 与 MCP 服务。
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// 统一错误码
const (
	ErrSourceUnavailable  = "source_unavailable"
	ErrInvalidEndpoint    = "invalid_endpoint"
	ErrEndpointNotAllowed = "endpoint_not_allowed"
	ErrTimeout            = "timeout"
)

// ContextLimit 单个上下文块序列化后的字符上限
const ContextLimit = 12000

// Result 单次查询结果；失败时 Error 非空
type Result struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	RecordCount int    `json:"record_count,omitempty"`
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
}

// Source 可查询的外部数据源
type Source interface {
	ID() string
	Name() string
	Description() string
	Rules() string
	Type() string
	Enabled() bool
	Available() bool
	// EndpointsSummary 供分析器提示词使用，可为空
	EndpointsSummary() string
	Query(ctx context.Context, endpoint string, params map[string]any, method string) *Result
}

// Info /api/data-sources 返回的元数据
type Info struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Enabled     bool    `json:"enabled"`
	Available   bool    `json:"available"`
	HasRules    bool    `json:"has_rules"`
	Endpoints   *string `json:"endpoints"`
}

// meta 各连接器共用的描述字段
type meta struct {
	id          string
	name        string
	description string
	rules       string
	enabled     bool
}

func newMeta(c SourceConfig) meta {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}
	return meta{id: c.ID, name: name, description: c.Description, rules: strings.TrimSpace(c.Rules), enabled: enabled}
}

func (m meta) ID() string          { return m.id }
func (m meta) Name() string        { return m.name }
func (m meta) Description() string { return m.description }
func (m meta) Rules() string       { return m.rules }
func (m meta) Enabled() bool       { return m.enabled }

func (m meta) fail(code string) *Result {
	return &Result{Success: false, Error: code, SourceID: m.id, SourceName: m.name}
}

func (m meta) ok(data any) *Result {
	return &Result{Success: true, Data: data, RecordCount: recordCount(data), SourceID: m.id, SourceName: m.name}
}

func recordCount(data any) int {
	if list, ok := data.([]any); ok {
		return len(list)
	}
	return 1
}

// resolveSecret 以 _ENV 结尾或 $ 开头的值视为环境变量名
func resolveSecret(val string) string {
	switch {
	case strings.HasSuffix(val, "_ENV"):
		return os.Getenv(val)
	case strings.HasPrefix(val, "$"):
		return os.Getenv(val[1:])
	default:
		return val
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeBody JSON 优先，失败时按纯文本返回
func decodeBody(body []byte) any {
	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		return data
	}
	return string(body)
}

// FormatBlock 生成 [Data Source: tag] 上下文块；数据为空返回空串
func FormatBlock(tag string, data any) string {
	if data == nil {
		return ""
	}

	var serialized string
	switch v := data.(type) {
	case map[string]any, []any:
		serialized = marshalCompact(v)
	case string:
		serialized = v
	default:
		serialized = fmt.Sprint(v)
	}
	if r := []rune(serialized); len(r) > ContextLimit {
		serialized = string(r[:ContextLimit]) + "\n... (truncated)"
	}
	return fmt.Sprintf("[Data Source: %s]\n%s\n", tag, serialized)
}

func marshalCompact(v any) string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(sb.String(), "\n")
}
