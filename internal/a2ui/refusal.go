package a2ui

import "strings"

// DefaultRefusalPhrases 拒答特征短语（小写子串匹配）
var DefaultRefusalPhrases = []string{
	"not available",
	"not yet available",
	"cannot provide",
	"don't have access",
	"no data available",
	"data is unavailable",
	"please refer to",
	"please consult",
	"consult financial",
	"check a financial",
	"unable to provide",
	"i can't provide",
	"i cannot access",
}

// RefusalNudge 重试时加在原问题前面的覆盖指令
const RefusalNudge = "IMPORTANT: Do NOT say data is unavailable. You MUST provide " +
	"approximate values from your training knowledge. Use a data-table " +
	"and chart with your best estimates, and add an info alert noting " +
	"the data is approximate. Original question: "

// RefusalDetector 检测模型是否拒答而非给出实质内容
type RefusalDetector struct {
	phrases []string
}

func NewRefusalDetector(phrases []string) *RefusalDetector {
	if len(phrases) == 0 {
		phrases = DefaultRefusalPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &RefusalDetector{phrases: lowered}
}

// IsRefusal 检查 text 字段，以及唯一组件为 alert 时的 description
func (d *RefusalDetector) IsRefusal(result map[string]any) bool {
	text, _ := result["text"].(string)
	if d.matches(text) {
		return true
	}

	doc, _ := result["a2ui"].(map[string]any)
	components, _ := doc["components"].([]any)
	if len(components) != 1 {
		return false
	}
	only, _ := components[0].(map[string]any)
	if t, _ := only["type"].(string); t != "alert" {
		return false
	}
	props, _ := only["props"].(map[string]any)
	desc, _ := props["description"].(string)
	return d.matches(desc)
}

func (d *RefusalDetector) matches(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, p := range d.phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
