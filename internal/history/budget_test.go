package history

import (
	"strings"
	"testing"

	"a2ui-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turns(sizes ...int) []model.ChatTurn {
	out := make([]model.ChatTurn, len(sizes))
	for i, n := range sizes {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		out[i] = model.ChatTurn{Role: role, Content: strings.Repeat(string(rune('a'+i)), n)}
	}
	return out
}

func TestTrim_Unbounded(t *testing.T) {
	in := turns(100, 200, 300)
	got := Trim(in, 5000, 5000, Unbounded)
	assert.Equal(t, in, got)

	got[0].Content = "mutated"
	assert.NotEqual(t, "mutated", in[0].Content)
}

func TestTrim_Bounded(t *testing.T) {
	tests := []struct {
		name     string
		sizes    []int
		system   int
		message  int
		max      int
		wantKept int
	}{
		{"everything fits", []int{10, 10, 10}, 10, 10, 100, 3},
		{"oldest dropped", []int{50, 30, 30}, 10, 10, 80, 2},
		{"stop at first overflow", []int{5, 100, 5}, 0, 0, 50, 1},
		{"newest too large keeps none", []int{5, 5, 100}, 0, 0, 50, 0},
		{"reserved exceeds max", []int{1, 1}, 60, 60, 100, 0},
		{"exact fit", []int{20, 20}, 30, 30, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := turns(tt.sizes...)
			got := Trim(in, tt.system, tt.message, tt.max)
			require.Len(t, got, tt.wantKept)
			assert.Equal(t, in[len(in)-tt.wantKept:], got)
		})
	}
}

func TestTrim_CountsUTF8Bytes(t *testing.T) {
	in := []model.ChatTurn{
		{Role: "user", Content: "héllo"},   // 6 bytes
		{Role: "assistant", Content: "日本"}, // 6 bytes
	}
	assert.Len(t, Trim(in, 0, 0, 11), 1)
	assert.Len(t, Trim(in, 0, 0, 12), 2)
}

func TestTrim_MonotonicInBudget(t *testing.T) {
	in := turns(40, 10, 70, 20, 30, 5, 60)
	prev := -1
	for max := 0; max <= 400; max += 7 {
		got := Trim(in, 3, 4, max)
		if max == Unbounded {
			continue
		}
		assert.GreaterOrEqual(t, len(got), prev, "budget %d", max)
		assert.Equal(t, in[len(in)-len(got):], got, "budget %d keeps a suffix", max)
		prev = len(got)
	}
}

func TestTrim_Empty(t *testing.T) {
	assert.Nil(t, Trim(nil, 0, 0, 100))
}
