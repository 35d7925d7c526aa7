package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message     string
		wantStyle   string
		wantMatched bool
	}{
		{"What is NVDA's market cap?", "analytical", true},
		{"how is AAPL doing", "analytical", true},
		{"Is a $2.5T valuation reasonable for a chipmaker", "analytical", true},
		{"US inflation over the last decade", "analytical", true},
		{"Top 10 tech companies by headcount", "analytical", true},
		{"iPhone vs Android", "comparison", true},
		{"iPhone vs. Android for a teenager", "comparison", true},
		{"Pros and cons of remote work", "comparison", true},
		{"How to set up a Go workspace", "howto", true},
		{"step-by-step sourdough starter", "howto", true},
		{"Explain how photosynthesis works in plants", "content", true},
		{"What does a snow leopard look like", "content", true},
		{"best 5 hiking trails in Colorado", "content", true},
		{"weather today", "quick", false},
		{"capital of Peru", "quick", false},
		{"Thoughts on the new season of my favourite show so far", "content", false},
		{"   ", "quick", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			style, matched := Classify(tt.message)
			assert.Equal(t, tt.wantStyle, style)
			assert.Equal(t, tt.wantMatched, matched)
		})
	}
}

func TestClassify_TickersAreCaseSensitive(t *testing.T) {
	style, _ := Classify("ma and pa shops in town")
	assert.NotEqual(t, "analytical", style)
}

func TestClassify_RulesTargetRegisteredStyles(t *testing.T) {
	r := New(DefaultStyle)
	for _, rule := range ClassificationRules {
		assert.True(t, r.Has(rule.Style), rule.Pattern.String())
	}
}
