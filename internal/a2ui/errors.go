package a2ui

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	Version = "1.0"

	VariantInfo    = "info"
	VariantWarning = "warning"
	VariantError   = "error"
)

var (
	htmlMarker = regexp.MustCompile(`(?i)<(html|body|head|!doctype|div|p|h1|title)[\s>]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// ErrorResponse 标准的 A2UI 错误负载：单个 alert 组件
func ErrorResponse(title, description, variant string) map[string]any {
	description = CleanErrorMessage(description)
	return AlertResponse("error", title, description, variant)
}

// AlertResponse 只含一个 alert 组件的负载，text 为 "title: description"
func AlertResponse(id, title, description, variant string) map[string]any {
	return map[string]any{
		"text": title + ": " + description,
		"a2ui": map[string]any{
			"version": Version,
			"components": []any{
				map[string]any{
					"id":   id,
					"type": "alert",
					"props": map[string]any{
						"variant":     variant,
						"title":       title,
						"description": description,
					},
				},
			},
		},
	}
}

// CleanErrorMessage 去掉上游错误中的 HTML 标记，只保留可读文本
func CleanErrorMessage(raw string) string {
	raw = strings.TrimSpace(raw)
	if !htmlMarker.MatchString(raw) {
		return raw
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			text := strings.TrimSpace(spaces.ReplaceAllString(b.String(), " "))
			if text == "" {
				return "Unknown error"
			}
			return text
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}
