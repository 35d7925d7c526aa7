package a2ui

import (
	"testing"

	"a2ui-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text kept", "invalid api key", "invalid api key"},
		{
			name: "html page stripped",
			in:   "<html><head><title>403 Forbidden</title><style>body{color:red}</style></head><body><h1>Forbidden</h1><p>Request   blocked &amp; logged</p></body></html>",
			want: "403 Forbidden Forbidden Request blocked & logged",
		},
		{"empty html", "<html><body></body></html>", "Unknown error"},
		{"comparison operators are not html", "tokens < limit and x > y", "tokens < limit and x > y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanErrorMessage(tt.in))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	got := ErrorResponse("Gateway Error", "<html><body>Bad Gateway</body></html>", VariantError)

	assert.Equal(t, "Gateway Error: Bad Gateway", got["text"])
	resp := ToUIResponse(got)
	require.NotNil(t, resp.A2UI)
	require.Len(t, resp.A2UI.Components, 1)
	alert := resp.A2UI.Components[0]
	assert.Equal(t, "error", alert.ID)
	assert.Equal(t, "alert", alert.Type)
	assert.Equal(t, VariantError, alert.Props["variant"])
	assert.Equal(t, "Bad Gateway", alert.Props["description"])
}

func TestToUIResponse_RepairsIDs(t *testing.T) {
	raw := map[string]any{
		"text": 42.0,
		"a2ui": map[string]any{
			"components": []any{
				map[string]any{"id": "a", "type": "grid", "children": []any{
					map[string]any{"id": "a", "type": "stat"},
					"junk",
					map[string]any{"type": "stat"},
				}},
				"junk",
				map[string]any{"id": "b", "type": "chart", "props": "not-an-object"},
			},
		},
		"suggestions": []any{"Next", 3.0, " "},
	}

	resp := ToUIResponse(raw)
	assert.Equal(t, "42", resp.Text)
	require.NotNil(t, resp.A2UI)
	assert.Equal(t, Version, resp.A2UI.Version)
	require.Len(t, resp.A2UI.Components, 2)

	grid := resp.A2UI.Components[0]
	assert.Equal(t, "a", grid.ID)
	require.Len(t, grid.Children, 2)
	assert.NotEqual(t, "a", grid.Children[0].ID)
	assert.Regexp(t, `^stat-[0-9a-f]{8}$`, grid.Children[0].ID)
	assert.Regexp(t, `^stat-[0-9a-f]{8}$`, grid.Children[1].ID)
	assert.Nil(t, resp.A2UI.Components[1].Props)
	assert.Equal(t, []string{"Next"}, resp.Suggestions)
}

func TestValidate(t *testing.T) {
	ok := ToUIResponse(AlertResponse("e", "Title", "desc", VariantWarning))
	assert.Empty(t, Validate(ok))

	bad := &model.UIResponse{
		Text: "x",
		A2UI: &model.A2UI{Version: "1.0", Components: []model.Component{{ID: "w", Type: "widget"}}},
	}
	warnings := Validate(bad)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "type")
}
