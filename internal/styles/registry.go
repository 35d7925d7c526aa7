// Package styles 内容风格注册表：系统提示词组合、组件优先级与规则分类。
package styles

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"a2ui-backend/pkg/logger"
)

const (
	DefaultStyle = "content"
	// Auto 表示由分析器或规则自动选择风格
	Auto = "auto"

	SoftLimitBytes = 5000
	HardLimitBytes = 7200
)

// Definition 一个风格的静态定义
type Definition struct {
	ID                string
	Name              string
	Description       string
	Prompt            string
	ComponentPriority []string
}

// Info /api/styles 返回的元数据
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PromptBytes int    `json:"prompt_bytes"`
}

type style struct {
	def      Definition
	composed string
}

// Registry 启动时构建，之后只读
type Registry struct {
	styles    map[string]*style
	order     []string
	defaultID string
}

// New 使用内置风格构建注册表
func New(defaultID string) *Registry {
	r, err := NewWithDefinitions(defaultID, builtin...)
	if err != nil {
		logger.Warnf("默认风格 %q 无效，回退到 %q: %v", defaultID, DefaultStyle, err)
		r, _ = NewWithDefinitions(DefaultStyle, builtin...)
	}
	return r
}

// NewWithDefinitions 用自定义风格构建注册表；超出字节上限只告警不拒绝
func NewWithDefinitions(defaultID string, defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no styles defined")
	}

	r := &Registry{styles: make(map[string]*style, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("style with empty id")
		}
		if _, dup := r.styles[d.ID]; dup {
			return nil, fmt.Errorf("duplicate style %q", d.ID)
		}
		composed := baseRules + "\n\n" + d.Prompt
		size := len(composed)
		switch {
		case size > HardLimitBytes:
			logger.Warnf("风格 %s 组合提示词 %d 字节，超过硬上限 %d", d.ID, size, HardLimitBytes)
		case size > SoftLimitBytes:
			logger.Warnf("风格 %s 组合提示词 %d 字节，超过软上限 %d", d.ID, size, SoftLimitBytes)
		}
		r.styles[d.ID] = &style{def: d, composed: composed}
		r.order = append(r.order, d.ID)
	}

	if _, ok := r.styles[defaultID]; !ok {
		return nil, fmt.Errorf("default style %q is not registered", defaultID)
	}
	r.defaultID = defaultID
	return r, nil
}

func (r *Registry) Default() string {
	return r.defaultID
}

func (r *Registry) Has(id string) bool {
	_, ok := r.styles[id]
	return ok
}

// IDs 按注册顺序
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Resolve 未知风格静默回退到默认风格（记录日志）
func (r *Registry) Resolve(id string) string {
	if r.Has(id) {
		return id
	}
	logger.Warnf("未知风格 %q，回退到 %q", id, r.defaultID)
	return r.defaultID
}

func (r *Registry) get(id string) *style {
	return r.styles[r.Resolve(id)]
}

// Compose 组合后的提示词（不含日期）
func (r *Registry) Compose(id string) string {
	return r.get(id).composed
}

// SystemPrompt 在组合提示词前加上当天日期
func (r *Registry) SystemPrompt(id string, now time.Time) string {
	return fmt.Sprintf("Current date: %s. All responses must be relevant to this date unless the user specifies otherwise.\n\n%s",
		now.Format("January 2, 2006"), r.Compose(id))
}

// PriorityOf 返回副本，调用方可随意修改
func (r *Registry) PriorityOf(id string) []string {
	return append([]string(nil), r.get(id).def.ComponentPriority...)
}

func (r *Registry) PromptBytes(id string) int {
	return len(r.Compose(id))
}

func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		s := r.styles[id]
		out = append(out, Info{
			ID:          s.def.ID,
			Name:        s.def.Name,
			Description: s.def.Description,
			PromptBytes: len(s.composed),
		})
	}
	return out
}

// Catalog 分析器提示词中的风格列表
func (r *Registry) Catalog() string {
	lines := make([]string, 0, len(r.order))
	for _, id := range r.order {
		lines = append(lines, fmt.Sprintf("- %s: %s", id, r.styles[id].def.Description))
	}
	return strings.Join(lines, "\n")
}

// BySize 按组合提示词大小升序，用于降级到更小的风格
func (r *Registry) BySize() []string {
	ids := r.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return len(r.styles[ids[i]].composed) < len(r.styles[ids[j]].composed)
	})
	return ids
}
