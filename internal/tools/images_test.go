package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePolicy_Defaults(t *testing.T) {
	p, err := NewImagePolicy(nil, nil)
	require.NoError(t, err)

	tests := []struct {
		message string
		want    bool
	}{
		{"What does a snow leopard look like", true},
		{"pictures of the Eiffel Tower", true},
		{"Show me modern architecture in Tokyo", true},
		{"Show me NVDA stock price", false},
		{"show me the weather forecast", false},
		{"Show me how to install Go", false},
		{"show me a python function that sorts a list", false},
		{"Explain quantum computing", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShowImages(tt.message))
		})
	}
}

func TestImagePolicy_Custom(t *testing.T) {
	p, err := NewImagePolicy([]string{`(?i)\bgallery\b`}, []string{`(?i)\bprivate\b`})
	require.NoError(t, err)

	assert.True(t, p.ShowImages("open the gallery"))
	assert.False(t, p.ShowImages("open the private gallery"))
	assert.False(t, p.ShowImages("show me cats"))

	_, err = NewImagePolicy([]string{`(`}, nil)
	assert.Error(t, err)
}
