package datasource

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"a2ui-backend/internal/model"
	"a2ui-backend/pkg/logger"
)

// maxConcurrentQueries 单个请求内主动查询的并发上限
const maxConcurrentQueries = 8

// connector 需要预先建立连接的数据源
type connector interface {
	Connect(ctx context.Context) error
}

// Registry 启动时从配置构建，之后只读
type Registry struct {
	sources map[string]Source
	order   []string
	timeout time.Duration
}

func NewRegistry(timeout time.Duration, sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources)), timeout: timeout}
	for _, s := range sources {
		if _, dup := r.sources[s.ID()]; dup {
			logger.Warnf("数据源 %s 重复定义，忽略后者", s.ID())
			continue
		}
		r.sources[s.ID()] = s
		r.order = append(r.order, s.ID())
	}
	return r
}

// Load 读取数据源配置；单个数据源配置错误只跳过该数据源
func Load(ctx context.Context, path string, timeout time.Duration) (*Registry, error) {
	fc, err := ReadFileConfig(path)
	if err != nil {
		return nil, err
	}
	if len(fc.Sources) == 0 {
		logger.Infof("数据源配置 %s 中没有定义数据源", path)
		return NewRegistry(timeout), nil
	}

	baseDir := filepath.Dir(path)
	var sources []Source
	for _, c := range fc.Sources {
		if c.ID == "" {
			logger.Warn("跳过缺少 id 的数据源")
			continue
		}
		s, err := newSource(c, baseDir)
		if err != nil {
			logger.Warnf("创建数据源 %s 失败: %v", c.ID, err)
			continue
		}
		if cn, ok := s.(connector); ok && s.Available() {
			if err := cn.Connect(ctx); err != nil {
				logger.Warnf("数据源 %s 预连接失败，将在查询时重试: %v", c.ID, err)
			}
		}
		logger.Infof("注册数据源: %s (%s) available=%v", s.ID(), s.Type(), s.Available())
		sources = append(sources, s)
	}

	r := NewRegistry(timeout, sources...)
	logger.Infof("数据源加载完成: 共 %d 个, 可用 %d 个", len(r.order), len(r.available()))
	return r, nil
}

func newSource(c SourceConfig, baseDir string) (Source, error) {
	switch c.Type {
	case "", "rest":
		return NewRESTSource(c, baseDir), nil
	case "databricks":
		return NewGenieSource(c), nil
	case "mcp":
		return NewMCPSource(c), nil
	default:
		return nil, fmt.Errorf("unknown data source type %q", c.Type)
	}
}

// Close 释放持有长连接的数据源
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for _, id := range r.order {
		if c, ok := r.sources[id].(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warnf("关闭数据源 %s 失败: %v", id, err)
			}
		}
	}
}

func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.sources[id]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) available() []Source {
	var out []Source
	for _, id := range r.order {
		if s := r.sources[id]; s.Available() {
			out = append(out, s)
		}
	}
	return out
}

// HasAvailable 是否至少有一个可用数据源
func (r *Registry) HasAvailable() bool {
	return len(r.available()) > 0
}

func (r *Registry) Infos() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		s := r.sources[id]
		info := Info{
			ID:          s.ID(),
			Name:        s.Name(),
			Type:        s.Type(),
			Description: s.Description(),
			Enabled:     s.Enabled(),
			Available:   s.Available(),
			HasRules:    s.Rules() != "",
		}
		if ep := s.EndpointsSummary(); ep != "" {
			info.Endpoints = &ep
		}
		out = append(out, info)
	}
	return out
}

// AnalyzerContext 分析器提示词中的数据源摘要；无可用数据源时为空
func (r *Registry) AnalyzerContext() string {
	avail := r.available()
	if len(avail) == 0 {
		return ""
	}
	lines := []string{"Available data sources:"}
	for _, s := range avail {
		head := s.ID() + ": " + s.Name()
		if s.Description() != "" {
			head += " — " + s.Description()
		}
		lines = append(lines, head)
		if ep := s.EndpointsSummary(); ep != "" {
			lines = append(lines, ep)
		}
	}
	return strings.Join(lines, "\n")
}

// RulesContext 拼接到系统提示词；ids 非空时只包含这些数据源
func (r *Registry) RulesContext(ids ...string) string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var lines []string
	for _, s := range r.available() {
		if s.Rules() == "" || (len(ids) > 0 && !want[s.ID()]) {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", s.Name(), s.Rules()))
	}
	if len(lines) == 0 {
		return ""
	}
	return "[Data Source Rules]\n" + strings.Join(lines, "\n")
}

// Query 并发执行全部查询，结果顺序与入参一致；单个失败互不影响
func (r *Registry) Query(ctx context.Context, queries []model.DataSourceQuery) []*Result {
	results := make([]*Result, len(queries))

	var g errgroup.Group
	g.SetLimit(maxConcurrentQueries)
	for i, q := range queries {
		s, ok := r.sources[q.Source]
		if !ok || !s.Available() {
			name := q.Source
			if name == "" {
				name = "unknown"
			}
			results[i] = &Result{Success: false, Error: ErrSourceUnavailable, SourceID: name, SourceName: name}
			continue
		}

		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					logger.Errorf("数据源 %s 查询 panic: %v", s.ID(), p)
					results[i] = &Result{Success: false, Error: fmt.Sprint(p), SourceID: s.ID(), SourceName: s.Name()}
				}
			}()

			qctx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			res := s.Query(qctx, q.Endpoint, q.Params, q.Method)
			if res == nil {
				res = &Result{Success: false, Error: "empty result"}
			}
			res.SourceID, res.SourceName = s.ID(), s.Name()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FormatResults 仅成功结果生成上下文块
func FormatResults(results []*Result) []string {
	var blocks []string
	for _, res := range results {
		if res == nil || !res.Success {
			continue
		}
		if b := FormatBlock(res.SourceName, res.Data); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// FormatPassive 调用方直接提供的数据块
func FormatPassive(items []model.DataContextItem) []string {
	var blocks []string
	for _, it := range items {
		tag := it.Label
		if tag == "" {
			tag = it.Source
		}
		if b := FormatBlock(tag, it.Data); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Outcomes 转换为响应诊断信息
func Outcomes(results []*Result) []model.DataSourceQueryOutcome {
	out := make([]model.DataSourceQueryOutcome, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		out = append(out, model.DataSourceQueryOutcome{
			Source:      res.SourceID,
			Success:     res.Success,
			Error:       res.Error,
			RecordCount: res.RecordCount,
		})
	}
	return out
}
