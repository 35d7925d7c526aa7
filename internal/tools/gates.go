package tools

import (
	"strings"

	"a2ui-backend/internal/config"
)

// Tool 可由环境锁控制的能力
type Tool string

const (
	ToolWebSearch    Tool = "web_search"
	ToolGeolocation  Tool = "geolocation"
	ToolHistory      Tool = "history"
	ToolAIClassifier Tool = "ai_classifier"
	ToolDataSources  Tool = "data_sources"
)

// AllTools /api/tools 的展示顺序
var AllTools = []Tool{ToolWebSearch, ToolGeolocation, ToolHistory, ToolAIClassifier, ToolDataSources}

var toolLabels = map[Tool]string{
	ToolWebSearch:    "Web Search",
	ToolGeolocation:  "Geolocation",
	ToolHistory:      "Conversation History",
	ToolAIClassifier: "AI Classifier",
	ToolDataSources:  "Data Sources",
}

// Lock 三态环境锁
type Lock int

const (
	LockUnset Lock = iota
	LockOn
	LockOff
)

func ParseLock(raw string) Lock {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes", "enabled":
		return LockOn
	case "off", "false", "0", "no", "disabled":
		return LockOff
	default:
		return LockUnset
	}
}

// State 单个工具对外暴露的状态
type State struct {
	ID        Tool   `json:"id"`
	Label     string `json:"label"`
	Default   bool   `json:"default"`
	Locked    bool   `json:"locked"`
	Value     *bool  `json:"value,omitempty"`
	Effective bool   `json:"effective"`
}

// Gates 工具开关解析：环境锁 > 调用方开关 > 默认值
type Gates struct {
	locks    map[Tool]Lock
	defaults map[Tool]bool
}

func NewGates(cfg config.ToolsConfig) *Gates {
	return &Gates{
		locks: map[Tool]Lock{
			ToolWebSearch:    ParseLock(cfg.WebSearch),
			ToolGeolocation:  ParseLock(cfg.Geolocation),
			ToolHistory:      ParseLock(cfg.History),
			ToolAIClassifier: ParseLock(cfg.AIClassifier),
			ToolDataSources:  ParseLock(cfg.DataSources),
		},
		defaults: map[Tool]bool{
			ToolWebSearch:    true,
			ToolGeolocation:  true,
			ToolHistory:      true,
			ToolAIClassifier: true,
			ToolDataSources:  true,
		},
	}
}

// Resolve caller 为 nil 表示调用方未指定
func (g *Gates) Resolve(tool Tool, caller *bool) bool {
	switch g.locks[tool] {
	case LockOn:
		return true
	case LockOff:
		return false
	}
	if caller != nil {
		return *caller
	}
	return g.defaults[tool]
}

func (g *Gates) Locked(tool Tool) bool {
	return g.locks[tool] != LockUnset
}

func (g *Gates) States() []State {
	states := make([]State, 0, len(AllTools))
	for _, t := range AllTools {
		s := State{
			ID:        t,
			Label:     toolLabels[t],
			Default:   g.defaults[t],
			Locked:    g.Locked(t),
			Effective: g.Resolve(t, nil),
		}
		if s.Locked {
			v := g.locks[t] == LockOn
			s.Value = &v
		}
		states = append(states, s)
	}
	return states
}
