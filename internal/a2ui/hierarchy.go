package a2ui

import (
	"sort"

	"a2ui-backend/pkg/logger"
)

// EnforceVisualHierarchy 按风格的组件优先级对顶层组件做稳定排序。
// 未列出的类型排在最后；非对象元素会被过滤；少于两个组件时不做任何改动。
func EnforceVisualHierarchy(result map[string]any, priority []string) map[string]any {
	doc, ok := result["a2ui"].(map[string]any)
	if !ok {
		return result
	}
	raw, ok := doc["components"].([]any)
	if !ok || len(raw) < 2 {
		return result
	}

	objects := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		if obj, ok := c.(map[string]any); ok {
			objects = append(objects, obj)
		}
	}
	if len(objects) < 2 {
		return result
	}

	rank := make(map[string]int, len(priority))
	for i, t := range priority {
		if _, seen := rank[t]; !seen {
			rank[t] = i
		}
	}
	unranked := len(priority)
	rankOf := func(c map[string]any) int {
		t, _ := c["type"].(string)
		if r, ok := rank[t]; ok {
			return r
		}
		return unranked
	}

	before := typesOf(objects)
	sort.SliceStable(objects, func(i, j int) bool {
		return rankOf(objects[i]) < rankOf(objects[j])
	})
	after := typesOf(objects)

	if !equalStrings(before, after) {
		logger.Debugf("组件顺序已调整: %v → %v", before, after)
	}

	sorted := make([]any, len(objects))
	for i, c := range objects {
		sorted[i] = c
	}
	doc["components"] = sorted
	return result
}

func typesOf(components []map[string]any) []string {
	out := make([]string, len(components))
	for i, c := range components {
		out[i], _ = c["type"].(string)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
