package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

const (
	genieTimeout      = 60 * time.Second
	genieMaxPolls     = 15
	genieDefaultDelay = 2 * time.Second
)

// GenieSource Databricks Genie 空间，按自然语言提问
type GenieSource struct {
	meta
	workspaceURL string
	token        string
	spaceID      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

func NewGenieSource(c SourceConfig) *GenieSource {
	g := c.Genie
	workspace := ""
	if g.WorkspaceURLEnv != "" {
		workspace = resolveSecret("$" + g.WorkspaceURLEnv)
	}
	if workspace == "" {
		workspace = g.WorkspaceURL
	}
	token := ""
	if g.TokenEnv != "" {
		token = resolveSecret("$" + g.TokenEnv)
	}
	if token == "" {
		token = resolveSecret(g.Token)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = genieTimeout
	}

	return &GenieSource{
		meta:         newMeta(c),
		workspaceURL: strings.TrimRight(workspace, "/"),
		token:        token,
		spaceID:      g.SpaceID,
		httpClient:   utils.NewHTTPClient(timeout, false),
		pollInterval: genieDefaultDelay,
		maxPolls:     genieMaxPolls,
	}
}

func (g *GenieSource) Type() string { return "databricks" }

func (g *GenieSource) Available() bool {
	return g.enabled && g.workspaceURL != "" && g.token != "" && g.spaceID != ""
}

func (g *GenieSource) EndpointsSummary() string {
	return "  Accepts natural language questions about enterprise data"
}

// SetPollInterval 测试中缩短轮询间隔
func (g *GenieSource) SetPollInterval(d time.Duration) {
	g.pollInterval = d
}

type genieStart struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type genieMessage struct {
	Status      string `json:"status"`
	Content     any    `json:"content"`
	Error       any    `json:"error"`
	Attachments []struct {
		Type        string `json:"type"`
		QueryResult struct {
			Data any `json:"data"`
		} `json:"query_result"`
		Text struct {
			Content any `json:"content"`
		} `json:"text"`
	} `json:"attachments"`
}

// Query endpoint 即问题文本；params.question 优先
func (g *GenieSource) Query(ctx context.Context, endpoint string, params map[string]any, _ string) *Result {
	question := endpoint
	if q, ok := params["question"].(string); ok && q != "" {
		question = q
	}
	if strings.TrimSpace(question) == "" {
		return g.fail("No question provided")
	}

	base := fmt.Sprintf("%s/api/2.0/genie/spaces/%s", g.workspaceURL, g.spaceID)
	logger.Infof("Databricks Genie 提问: space=%s question=%.80s", g.spaceID, question)

	payload, _ := json.Marshal(map[string]string{"content": question})
	status, body, err := g.do(ctx, http.MethodPost, base+"/start-conversation", payload)
	if err != nil {
		return g.transportFailure(err)
	}
	if status >= 400 {
		logger.Warnf("Genie 返回 %d: %.200s", status, string(body))
		r := g.fail(fmt.Sprintf("HTTP %d", status))
		r.StatusCode = status
		return r
	}

	var start genieStart
	if err := json.Unmarshal(body, &start); err != nil {
		return g.fail(fmt.Sprintf("decode genie response: %v", err))
	}

	if start.ConversationID != "" && start.MessageID != "" {
		pollURL := fmt.Sprintf("%s/conversations/%s/messages/%s", base, start.ConversationID, start.MessageID)
		data, err := g.poll(ctx, pollURL)
		if err != nil {
			return g.transportFailure(err)
		}
		if data != nil {
			r := g.ok(data)
			logger.Infof("Genie 查询成功: %d 条记录", r.RecordCount)
			return r
		}
	}

	// 未拿到结果时回退为原始响应
	r := g.ok(decodeBody(body))
	r.RecordCount = 1
	return r
}

func (g *GenieSource) poll(ctx context.Context, pollURL string) (any, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for i := 0; i < g.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, body, err := g.do(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			if isTimeout(err) {
				return nil, err
			}
			continue
		}
		if status != http.StatusOK {
			continue
		}

		var msg genieMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			continue
		}
		switch msg.Status {
		case "COMPLETED":
			for _, a := range msg.Attachments {
				switch a.Type {
				case "QUERY_RESULT":
					return a.QueryResult.Data, nil
				case "TEXT":
					return a.Text.Content, nil
				}
			}
			return msg.Content, nil
		case "FAILED", "CANCELLED":
			logger.Warnf("Genie 消息状态 %s: %v", msg.Status, msg.Error)
			return nil, nil
		}
	}

	logger.Warnf("Genie 轮询 %d 次仍未完成", g.maxPolls)
	return nil, nil
}

func (g *GenieSource) do(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func (g *GenieSource) transportFailure(err error) *Result {
	if isTimeout(err) {
		logger.Warnf("Genie 数据源 %s 超时", g.id)
		return g.fail(ErrTimeout)
	}
	logger.Warnf("Genie 数据源 %s 出错: %v", g.id, err)
	return g.fail(err.Error())
}
