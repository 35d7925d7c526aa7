package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"a2ui-backend/internal/utils"
	"a2ui-backend/pkg/logger"
)

const (
	restTimeout    = 30 * time.Second
	openAPITimeout = 10 * time.Second
)

type endpoint struct {
	Path        string
	Method      string
	Description string
	Params      []string
}

func (e endpoint) summaryLine() string {
	line := fmt.Sprintf("  %s %s", e.Method, e.Path)
	if e.Description != "" {
		line += " — " + e.Description
	}
	if len(e.Params) > 0 {
		line += "\n    params: " + strings.Join(e.Params, ", ")
	}
	return line
}

// RESTSource 任意 REST API，可选 OpenAPI/Swagger 自动发现接口
type RESTSource struct {
	meta
	baseURL    string
	authType   string
	authToken  string
	authHeader string
	endpoints  []endpoint
	httpClient *http.Client
}

// NewRESTSource baseDir 用于解析相对路径的 openapi_spec
func NewRESTSource(c SourceConfig, baseDir string) *RESTSource {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = restTimeout
	}
	authType := c.Auth.Type
	if authType == "" {
		authType = "none"
	}
	header := c.Auth.Header
	if header == "" {
		header = "Authorization"
	}
	token := c.Auth.TokenEnv
	if token == "" {
		token = c.Auth.Token
	}

	s := &RESTSource{
		meta:       newMeta(c),
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		authType:   authType,
		authToken:  resolveSecret(token),
		authHeader: header,
		httpClient: utils.NewHTTPClient(timeout, false),
	}
	for _, ep := range c.Endpoints {
		method := strings.ToUpper(ep.Method)
		if method == "" {
			method = http.MethodGet
		}
		s.endpoints = append(s.endpoints, endpoint{Path: ep.Path, Method: method, Description: ep.Description, Params: ep.Params})
	}
	if c.OpenAPISpec != "" {
		s.loadOpenAPISpec(c.OpenAPISpec, baseDir)
	}
	return s
}

func (s *RESTSource) Type() string { return "rest" }

func (s *RESTSource) Available() bool {
	if s.baseURL == "" {
		return false
	}
	if s.authType != "none" && s.authToken == "" {
		return false
	}
	return s.enabled
}

func (s *RESTSource) authHeaders() map[string]string {
	switch {
	case s.authType == "bearer" && s.authToken != "":
		return map[string]string{"Authorization": "Bearer " + s.authToken}
	case s.authType == "api_key" && s.authToken != "":
		return map[string]string{s.authHeader: s.authToken}
	}
	return nil
}

// loadOpenAPISpec 兼容 OpenAPI 3.x 与 Swagger 2.x，JSON 也按 YAML 解析
func (s *RESTSource) loadOpenAPISpec(location, baseDir string) {
	raw, err := s.readSpec(location, baseDir)
	if err != nil {
		logger.Warnf("加载 OpenAPI 文档 %s 失败: %v", location, err)
		return
	}

	var spec struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		logger.Warnf("解析 OpenAPI 文档 %s 失败: %v", location, err)
		return
	}

	routes := make([]string, 0, len(spec.Paths))
	for route := range spec.Paths {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	for _, route := range routes {
		methods := spec.Paths[route]
		names := make([]string, 0, len(methods))
		for m := range methods {
			names = append(names, m)
		}
		sort.Strings(names)

		for _, m := range names {
			switch strings.ToLower(m) {
			case "get", "post", "put", "patch", "delete":
			default:
				continue
			}
			var op struct {
				Summary     string `yaml:"summary"`
				Description string `yaml:"description"`
				Parameters  []struct {
					Name string `yaml:"name"`
					In   string `yaml:"in"`
				} `yaml:"parameters"`
			}
			node := methods[m]
			if err := node.Decode(&op); err != nil {
				logger.Warnf("OpenAPI 接口 %s %s 解析失败: %v", m, route, err)
				continue
			}
			var params []string
			for _, p := range op.Parameters {
				if p.In == "query" || p.In == "path" {
					params = append(params, p.Name)
				}
			}
			desc := op.Summary
			if desc == "" {
				desc = op.Description
			}
			if r := []rune(desc); len(r) > 120 {
				desc = string(r[:120])
			}
			ep := endpoint{Path: route, Method: strings.ToUpper(m), Description: desc, Params: params}
			if !s.hasEndpoint(ep.Path, ep.Method) {
				s.endpoints = append(s.endpoints, ep)
			}
		}
	}
	logger.Infof("数据源 %s 从 OpenAPI 文档加载了 %d 个接口", s.id, len(s.endpoints))
}

func (s *RESTSource) readSpec(location, baseDir string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		ctx, cancel := context.WithTimeout(context.Background(), openAPITimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	if !filepath.IsAbs(location) {
		location = filepath.Join(baseDir, location)
	}
	return os.ReadFile(location)
}

func (s *RESTSource) hasEndpoint(path, method string) bool {
	for _, e := range s.endpoints {
		if e.Path == path && e.Method == method {
			return true
		}
	}
	return false
}

// allowed 未配置接口时不限制；GET 对任何已登记路径放行
func (s *RESTSource) allowed(path, method string) bool {
	if len(s.endpoints) == 0 {
		return true
	}
	normalized := strings.TrimRight(path, "/")
	for _, e := range s.endpoints {
		if strings.TrimRight(e.Path, "/") != normalized {
			continue
		}
		if e.Method == method || method == http.MethodGet {
			return true
		}
	}
	return false
}

func (s *RESTSource) Query(ctx context.Context, path string, params map[string]any, method string) *Result {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if strings.Contains(path, "..") || strings.Contains(path, "://") {
		logger.Warnf("拦截非法接口路径: %s (数据源 %s)", path, s.id)
		return s.fail(ErrInvalidEndpoint)
	}
	if !s.allowed(path, method) {
		logger.Warnf("拦截未登记接口: %s %s (数据源 %s)", method, path, s.id)
		return s.fail(ErrEndpointNotAllowed)
	}

	req, err := s.buildRequest(ctx, method, s.baseURL+path, params)
	if err != nil {
		return s.fail(err.Error())
	}

	logger.WithFields(logger.Fields{"source": s.id, "method": method, "url": req.URL.String()}).Info("查询数据源")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Warnf("数据源 %s 请求超时", s.id)
			return s.fail(ErrTimeout)
		}
		logger.Warnf("数据源 %s 请求失败: %v", s.id, err)
		return s.fail(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return s.fail(ErrTimeout)
		}
		return s.fail(err.Error())
	}

	if resp.StatusCode >= 400 {
		logger.Warnf("数据源 %s 返回 %d: %.200s", s.id, resp.StatusCode, string(body))
		r := s.fail(fmt.Sprintf("HTTP %d", resp.StatusCode))
		r.StatusCode = resp.StatusCode
		return r
	}

	result := s.ok(decodeBody(body))
	logger.Infof("数据源 %s 查询成功: %d 条记录, %d 字节", s.id, result.RecordCount, len(body))
	return result
}

func (s *RESTSource) buildRequest(ctx context.Context, method, target string, params map[string]any) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		req.URL.RawQuery = q.Encode()
	} else {
		payload, merr := json.Marshal(params)
		if merr != nil {
			return nil, merr
		}
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range s.authHeaders() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *RESTSource) EndpointsSummary() string {
	lines := make([]string, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		lines = append(lines, e.summaryLine())
	}
	return strings.Join(lines, "\n")
}

