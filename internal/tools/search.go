package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"a2ui-backend/internal/config"
	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

const (
	DefaultMaxResults = 5
	MaxImages         = 6
)

// SearchErrorKind 搜索失败类型
type SearchErrorKind string

const (
	SearchNotConfigured SearchErrorKind = "not_configured"
	SearchRateLimit     SearchErrorKind = "rate_limit"
	SearchInvalidKey    SearchErrorKind = "invalid_key"
	SearchTimeout       SearchErrorKind = "timeout"
	SearchUnknown       SearchErrorKind = "unknown"
)

type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse 成功与失败共用；失败时 Error 非空
type SearchResponse struct {
	Success      bool            `json:"success"`
	Query        string          `json:"query,omitempty"`
	Answer       string          `json:"answer,omitempty"`
	Results      []SearchResult  `json:"results"`
	Images       []string        `json:"images,omitempty"`
	Error        SearchErrorKind `json:"error,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Searcher 网页搜索后端
type Searcher interface {
	Available() bool
	Search(ctx context.Context, query string) *SearchResponse
}

// TavilyClient Tavily 搜索 API 客户端
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	depth      string
	httpClient *http.Client
}

func NewTavilyClient(cfg config.SearchConfig, timeout time.Duration) *TavilyClient {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	depth := cfg.Depth
	if depth == "" {
		depth = "basic"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TavilyClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
		depth:      depth,
		httpClient: utils.NewHTTPClient(timeout, false),
	}
}

func (c *TavilyClient) Available() bool {
	return c.apiKey != ""
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	IncludeImages bool   `json:"include_images"`
}

type tavilyResponse struct {
	Answer  string            `json:"answer"`
	Results []SearchResult    `json:"results"`
	Images  []json.RawMessage `json:"images"`
}

// tavilyStatusError 非 2xx 响应
type tavilyStatusError struct {
	Status int
	Body   string
}

func (e *tavilyStatusError) Error() string {
	return fmt.Sprintf("tavily returned HTTP %d: %s", e.Status, e.Body)
}

// Search 永不返回 error，失败通过 SearchResponse.Error 表达
func (c *TavilyClient) Search(ctx context.Context, query string) *SearchResponse {
	if !c.Available() {
		logger.Warn("网页搜索未配置 API Key")
		return failed(query, SearchNotConfigured, "Web search not configured")
	}

	raw, err := c.do(ctx, query)
	if err != nil {
		kind := classifySearchError(err)
		logger.Warnf("网页搜索失败 (%s): %v", kind, err)
		return failed(query, kind, searchErrorMessage(kind, err))
	}

	resp := &SearchResponse{
		Success: true,
		Query:   query,
		Answer:  raw.Answer,
		Results: raw.Results,
		Images:  imageURLs(raw.Images),
	}
	if resp.Results == nil {
		resp.Results = []SearchResult{}
	}
	return resp
}

func (c *TavilyClient) do(ctx context.Context, query string) (*tavilyResponse, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    c.maxResults,
		SearchDepth:   c.depth,
		IncludeAnswer: true,
		IncludeImages: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &tavilyStatusError{Status: resp.StatusCode, Body: string(b)}
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// imageURLs 图片可能是字符串或 {url: ...} 对象，最多保留 MaxImages 个
func imageURLs(raw []json.RawMessage) []string {
	urls := make([]string, 0, len(raw))
	for _, r := range raw {
		if len(urls) == MaxImages {
			break
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if s != "" {
				urls = append(urls, s)
			}
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(r, &obj); err == nil && obj.URL != "" {
			urls = append(urls, obj.URL)
		}
	}
	return urls
}

func classifySearchError(err error) SearchErrorKind {
	var statusErr *tavilyStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusTooManyRequests:
			return SearchRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return SearchInvalidKey
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return SearchTimeout
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return SearchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return SearchTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return SearchRateLimit
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return SearchInvalidKey
	case strings.Contains(msg, "timeout"):
		return SearchTimeout
	}
	return SearchUnknown
}

func searchErrorMessage(kind SearchErrorKind, err error) string {
	switch kind {
	case SearchRateLimit:
		return "Search rate limit exceeded. Try again later."
	case SearchInvalidKey:
		return "Invalid search API key"
	case SearchTimeout:
		return "Search request timed out"
	default:
		return "Search failed: " + err.Error()
	}
}

func failed(query string, kind SearchErrorKind, msg string) *SearchResponse {
	return &SearchResponse{
		Success:      false,
		Query:        query,
		Results:      []SearchResult{},
		Error:        kind,
		ErrorMessage: msg,
	}
}
