package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	einoMcp "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/cloudwego/eino/components/tool"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"a2ui-backend/pkg/logger"
)

const mcpConnectTimeout = 15 * time.Second

// MCPErrorResult MCP 工具执行失败时的统一结果格式
type MCPErrorResult struct {
	Success      bool   `json:"success"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
	ToolName     string `json:"tool_name"`
}

// CreateMCPErrorHandler 将工具错误转换为普通结果，调用方按内容判断失败
func CreateMCPErrorHandler() func(ctx context.Context, name string, result *mcp.CallToolResult) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, name string, result *mcp.CallToolResult) (*mcp.CallToolResult, error) {
		if result == nil || !result.IsError {
			return result, nil
		}

		logger.Warnf("MCP工具 '%s' 执行失败，转换为错误结果格式", name)

		errorJSON, err := json.Marshal(MCPErrorResult{
			Success:      false,
			Error:        true,
			ErrorMessage: extractErrorMessage(result),
			ToolName:     name,
		})
		if err != nil {
			errorJSON = []byte(fmt.Sprintf(`{"success":false,"error":true,"error_message":"tool failed","tool_name":%q}`, name))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: string(errorJSON)},
			},
			IsError: false,
		}, nil
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			if c.Text != "" {
				return c.Text
			}
		case *mcp.TextContent:
			if c.Text != "" {
				return c.Text
			}
		}
	}
	return "MCP工具执行失败"
}

// IsMCPErrorResult 判断工具输出是否为 CreateMCPErrorHandler 生成的错误结果
func IsMCPErrorResult(resultText string) (bool, *MCPErrorResult) {
	var errorResult MCPErrorResult
	if err := json.Unmarshal([]byte(resultText), &errorResult); err != nil {
		return false, nil
	}
	if errorResult.Error && !errorResult.Success {
		return true, &errorResult
	}
	return false, nil
}

// toolLoader 建立连接并返回工具列表；closer 释放连接，可为 nil
type toolLoader func(ctx context.Context) (tools []tool.BaseTool, closer func() error, err error)

// MCPSource 通过 SSE 连接的 MCP 服务，endpoint 为工具名，params 为工具参数
type MCPSource struct {
	meta
	url    string
	load   toolLoader
	mu     sync.Mutex
	tools  map[string]tool.InvokableTool
	order  []string
	descs  map[string]string
	loaded bool
	closer func() error
}

func NewMCPSource(c SourceConfig) *MCPSource {
	s := &MCPSource{meta: newMeta(c), url: c.URL}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = resolveSecret(v)
	}
	s.load = sseToolLoader(c.URL, headers, c.Tools)
	return s
}

func sseToolLoader(url string, headers map[string]string, toolNames []string) toolLoader {
	return func(ctx context.Context) ([]tool.BaseTool, func() error, error) {
		cli, err := client.NewSSEMCPClient(url, client.WithHeaders(headers))
		if err != nil {
			return nil, nil, fmt.Errorf("create mcp client: %w", err)
		}
		// SSE 长连接跟随 Start 的 ctx，不能用带超时的 ctx
		if err := cli.Start(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("start mcp client: %w", err)
		}

		initRequest := mcp.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcp.Implementation{
			Name:    "a2ui-data-source",
			Version: "1.0.0",
		}
		if _, err := cli.Initialize(ctx, initRequest); err != nil {
			_ = cli.Close()
			return nil, nil, fmt.Errorf("initialize mcp connection: %w", err)
		}

		tools, err := einoMcp.GetTools(ctx, &einoMcp.Config{
			Cli:                   cli,
			ToolNameList:          toolNames,
			ToolCallResultHandler: CreateMCPErrorHandler(),
		})
		if err != nil {
			_ = cli.Close()
			return nil, nil, fmt.Errorf("list mcp tools: %w", err)
		}
		return tools, cli.Close, nil
	}
}

func (s *MCPSource) Type() string { return "mcp" }

func (s *MCPSource) Available() bool {
	return s.enabled && s.url != ""
}

// Connect 拉取工具列表；失败后下次查询会重试
func (s *MCPSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *MCPSource) connectLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, mcpConnectTimeout)
	defer cancel()

	baseTools, closer, err := s.load(ctx)
	if err != nil {
		return err
	}

	tools := make(map[string]tool.InvokableTool, len(baseTools))
	descs := make(map[string]string, len(baseTools))
	var order []string
	for _, bt := range baseTools {
		info, err := bt.Info(ctx)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return fmt.Errorf("read mcp tool info: %w", err)
		}
		it, ok := bt.(tool.InvokableTool)
		if !ok {
			continue
		}
		tools[info.Name] = it
		descs[info.Name] = info.Desc
		order = append(order, info.Name)
	}

	s.tools, s.descs, s.order, s.loaded = tools, descs, order, true
	s.closer = closer
	logger.Infof("MCP 数据源 %s 加载了 %d 个工具", s.id, len(order))
	return nil
}

func (s *MCPSource) Query(ctx context.Context, endpoint string, params map[string]any, _ string) *Result {
	s.mu.Lock()
	if err := s.connectLocked(ctx); err != nil {
		s.mu.Unlock()
		if isTimeout(err) {
			return s.fail(ErrTimeout)
		}
		logger.Warnf("MCP 数据源 %s 连接失败: %v", s.id, err)
		return s.fail(err.Error())
	}
	t, ok := s.tools[strings.TrimPrefix(endpoint, "/")]
	s.mu.Unlock()

	if !ok {
		logger.Warnf("MCP 数据源 %s 没有工具 %s", s.id, endpoint)
		return s.fail(ErrEndpointNotAllowed)
	}

	if params == nil {
		params = map[string]any{}
	}
	args, err := json.Marshal(params)
	if err != nil {
		return s.fail(err.Error())
	}

	out, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		if isTimeout(err) {
			return s.fail(ErrTimeout)
		}
		logger.Warnf("MCP 工具 %s 调用失败: %v", endpoint, err)
		return s.fail(err.Error())
	}
	text := toolOutputText(out)
	if isErr, detail := IsMCPErrorResult(text); isErr {
		return s.fail(detail.ErrorMessage)
	}
	return s.ok(decodeBody([]byte(text)))
}

// toolOutputText 取出 CallToolResult 中的文本内容；不是该结构时原样返回
func toolOutputText(out string) string {
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil || len(result.Content) == 0 {
		return out
	}
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return out
	}
	return strings.Join(parts, "\n")
}

// Close 断开 MCP 连接，下次查询会重新连接
func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.closer != nil {
		err = s.closer()
	}
	s.tools, s.descs, s.order, s.loaded, s.closer = nil, nil, nil, false, nil
	return err
}

func (s *MCPSource) EndpointsSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]string, 0, len(s.order))
	for _, name := range s.order {
		line := "  tool " + name
		if d := s.descs[name]; d != "" {
			line += " — " + d
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
