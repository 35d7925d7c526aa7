// Package a2ui 负责把模型原始输出修复、整理成 A2UI 负载。
package a2ui

import (
	"encoding/json"
	"regexp"
	"strings"

	"a2ui-backend/pkg/logger"
)

var (
	fenceOpen  = regexp.MustCompile("^```\\w*[ \\t]*\\r?\\n?")
	fenceClose = regexp.MustCompile("\\r?\\n?```\\s*$")
	// 贪婪匹配：第一个 { 到最后一个 }
	greedyObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// 模型偶尔输出的零宽字符与 BOM
var invisibleRunes = map[rune]bool{
	'\ufeff': true,
	'\u200b': true,
	'\u200c': true,
	'\u200d': true,
	'\u2060': true,
}

// Extract 从模型原始文本中尽力恢复一个 JSON 对象，永不失败。
// 全部解析失败时返回 {"text": raw}。
func Extract(raw string) map[string]any {
	cleaned := clean(raw)

	if obj, ok := parseObject(cleaned); ok {
		return obj
	}

	if candidate, ok := balancedObject(cleaned); ok {
		if obj, ok := parseObject(candidate); ok {
			return obj
		}
	}

	if candidate := greedyObject.FindString(cleaned); candidate != "" {
		if obj, ok := parseObject(candidate); ok {
			return obj
		}
	}

	logger.Warnf("JSON 提取失败，退化为纯文本，预览: %.200s", raw)
	return map[string]any{"text": raw}
}

func clean(raw string) string {
	s := strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}
		return r
	}, raw)
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
	}
	return s
}

func parseObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// balancedObject 从第一个 { 开始按括号深度找到匹配的 }，跳过字符串内的括号
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
