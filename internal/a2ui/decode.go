package a2ui

import (
	"fmt"
	"strings"

	"a2ui-backend/internal/model"

	"github.com/google/uuid"
)

// ToUIResponse 将提取出的负载转换为强类型响应。
// 非对象组件被丢弃；缺失或重复的组件 id 会被重新生成，保证整棵树内唯一。
func ToUIResponse(m map[string]any) *model.UIResponse {
	resp := &model.UIResponse{}

	switch t := m["text"].(type) {
	case string:
		resp.Text = t
	case nil:
	default:
		resp.Text = fmt.Sprint(t)
	}

	if doc, ok := m["a2ui"].(map[string]any); ok {
		version, _ := doc["version"].(string)
		if version == "" {
			version = Version
		}
		ui := &model.A2UI{Version: version, Components: []model.Component{}}
		seen := make(map[string]bool)
		raw, _ := doc["components"].([]any)
		for _, c := range raw {
			if obj, ok := c.(map[string]any); ok {
				ui.Components = append(ui.Components, decodeComponent(obj, seen))
			}
		}
		resp.A2UI = ui
	}

	if raw, ok := m["suggestions"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok && strings.TrimSpace(str) != "" {
				resp.Suggestions = append(resp.Suggestions, str)
			}
		}
	}

	return resp
}

func decodeComponent(obj map[string]any, seen map[string]bool) model.Component {
	c := model.Component{}
	c.Type, _ = obj["type"].(string)
	c.ID, _ = obj["id"].(string)
	if c.ID == "" || seen[c.ID] {
		c.ID = newComponentID(c.Type)
	}
	seen[c.ID] = true

	if props, ok := obj["props"].(map[string]any); ok {
		c.Props = props
	}
	if children, ok := obj["children"].([]any); ok {
		for _, child := range children {
			if childObj, ok := child.(map[string]any); ok {
				c.Children = append(c.Children, decodeComponent(childObj, seen))
			}
		}
	}
	return c
}

func newComponentID(kind string) string {
	if kind == "" {
		kind = "component"
	}
	return kind + "-" + uuid.NewString()[:8]
}
