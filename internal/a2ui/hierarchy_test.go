package a2ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func payload(components ...any) map[string]any {
	return map[string]any{
		"text": "x",
		"a2ui": map[string]any{"version": "1.0", "components": components},
	}
}

func comp(id, typ string) map[string]any {
	return map[string]any{"id": id, "type": typ}
}

func ids(result map[string]any) []string {
	doc := result["a2ui"].(map[string]any)
	var out []string
	for _, c := range doc["components"].([]any) {
		if obj, ok := c.(map[string]any); ok {
			out = append(out, obj["id"].(string))
		} else {
			out = append(out, "<non-object>")
		}
	}
	return out
}

func TestEnforceVisualHierarchy(t *testing.T) {
	priority := []string{"alert", "chart", "data-table"}

	tests := []struct {
		name  string
		input map[string]any
		want  []string
	}{
		{
			name:  "sorts by rank",
			input: payload(comp("t", "data-table"), comp("c", "chart"), comp("a", "alert")),
			want:  []string{"a", "c", "t"},
		},
		{
			name:  "stable within same rank",
			input: payload(comp("t1", "data-table"), comp("c1", "chart"), comp("t2", "data-table"), comp("c2", "chart")),
			want:  []string{"c1", "c2", "t1", "t2"},
		},
		{
			name:  "unranked last and keep relative order",
			input: payload(comp("x", "card"), comp("c", "chart"), comp("y", "image"), comp("a", "alert"), comp("z", "card")),
			want:  []string{"a", "c", "x", "y", "z"},
		},
		{
			name:  "non-object entries filtered",
			input: payload("stray text", comp("t", "data-table"), 42.0, comp("c", "chart")),
			want:  []string{"c", "t"},
		},
		{
			name:  "single component untouched",
			input: payload(comp("t", "data-table")),
			want:  []string{"t"},
		},
		{
			name:  "one object among strays untouched",
			input: payload("stray", comp("t", "data-table")),
			want:  []string{"<non-object>", "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnforceVisualHierarchy(tt.input, priority)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestEnforceVisualHierarchy_NoA2UI(t *testing.T) {
	in := map[string]any{"text": "plain"}
	assert.Equal(t, map[string]any{"text": "plain"}, EnforceVisualHierarchy(in, []string{"alert"}))

	in = map[string]any{"text": "x", "a2ui": "not an object"}
	assert.Equal(t, "not an object", EnforceVisualHierarchy(in, []string{"alert"})["a2ui"])
}

func TestEnforceVisualHierarchy_EmptyPriority(t *testing.T) {
	in := payload(comp("b", "chart"), comp("a", "alert"))
	assert.Equal(t, []string{"b", "a"}, ids(EnforceVisualHierarchy(in, nil)))
}
