package tools

import (
	"fmt"
	"strings"
)

const (
	searchHeader    = "[Web Search Results — REAL, CURRENT data. Use these facts in your answer.]"
	searchNoResults = "[Web search found no relevant results]"
	excerptRunes    = 400
)

// FormatForContext 失败时返回 false，调用方不附加任何上下文
func FormatForContext(resp *SearchResponse) (string, bool) {
	if resp == nil || !resp.Success {
		return "", false
	}
	if len(resp.Results) == 0 {
		return searchNoResults, true
	}

	parts := []string{searchHeader}
	if resp.Answer != "" {
		parts = append(parts, "Direct answer: "+resp.Answer)
	}

	for i, r := range resp.Results {
		if i == DefaultMaxResults {
			break
		}
		parts = append(parts, fmt.Sprintf("\n%d. %s\n   URL: %s\n   %s", i+1, r.Title, r.URL, truncateRunes(r.Content, excerptRunes)))
	}

	if len(resp.Images) > 0 {
		parts = append(parts, "\n[Available Images]")
		for i, u := range resp.Images {
			if i == MaxImages {
				break
			}
			parts = append(parts, fmt.Sprintf("  %d. %s", i+1, u))
		}
		parts = append(parts, "[End of Available Images]")
	}

	parts = append(parts, "\n[End of Search Results]\n")
	return strings.Join(parts, "\n"), true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
