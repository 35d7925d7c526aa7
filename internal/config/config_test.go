package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "LITELLM_API_KEY", "LITELLM_BASE_URL",
		"ARK_API_KEY", "DOUBAO_API_KEY", "DASHSCOPE_API_KEY", "TAVILY_API_KEY", "A2UI_API_KEY",
		"A2UI_LOCK_WEB_SEARCH", "A2UI_LOCK_GEOLOCATION", "A2UI_LOCK_HISTORY", "A2UI_LOCK_AI_CLASSIFIER",
		"A2UI_LOCK_DATA_SOURCES", "A2UI_CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "content", c.Pipeline.DefaultStyle)
	assert.Equal(t, "auto", c.Pipeline.DefaultPerformanceMode)
	assert.Equal(t, "headroom", c.Pipeline.BudgetMode)
	assert.Equal(t, 0, c.Pipeline.MaxBodyBytes)
	assert.InDelta(t, 0.6, c.Pipeline.PromptBudgetFraction, 1e-9)
	assert.Equal(t, 60*time.Second, c.Pipeline.GenerationTimeout)
	assert.Equal(t, DefaultAnalyzerCandidates(), c.Pipeline.AnalyzerCandidates)
	assert.Equal(t, 20, c.RateLimit.ChatPerMinute)
	assert.Equal(t, int64(1_000_000), c.Security.MaxRequestBytes)
	assert.Empty(t, c.Providers.OpenAI.APIKey)
	assert.Same(t, c, Get())
}

func TestLoad_EnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("DOUBAO_API_KEY", "ark-key")
	t.Setenv("TAVILY_API_KEY", "tvly-key")
	t.Setenv("A2UI_LOCK_WEB_SEARCH", "off")
	t.Setenv("A2UI_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("A2UI_SERVER_PORT", "9100")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-openai", c.Providers.OpenAI.APIKey)
	assert.Equal(t, "ark-key", c.Providers.Doubao.APIKey)
	assert.Equal(t, "tvly-key", c.Search.APIKey)
	assert.Equal(t, "off", c.Tools.WebSearch)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORS.AllowedOrigins)
	assert.Equal(t, 9100, c.Server.Port)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  max_body_bytes: 60000
  budget_mode: downgrade
  search_timeout: 5s
  analyzer_candidates:
    - { provider: gemini, model: gemini-2.0-flash }
providers:
  openai:
    api_key: from-file
tools:
  history: "on"
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60000, c.Pipeline.MaxBodyBytes)
	assert.Equal(t, "downgrade", c.Pipeline.BudgetMode)
	assert.Equal(t, 5*time.Second, c.Pipeline.SearchTimeout)
	assert.Equal(t, []CandidateConfig{{Provider: "gemini", Model: "gemini-2.0-flash"}}, c.Pipeline.AnalyzerCandidates)
	assert.Equal(t, "from-file", c.Providers.OpenAI.APIKey, "file value wins over conventional env var")
	assert.Equal(t, "on", c.Tools.History)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Pipeline: PipelineConfig{
				DefaultPerformanceMode: "auto",
				BudgetMode:             "headroom",
				PromptBudgetFraction:   0.6,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad mode", func(c *Config) { c.Pipeline.DefaultPerformanceMode = "turbo" }},
		{"bad budget mode", func(c *Config) { c.Pipeline.BudgetMode = "squeeze" }},
		{"negative body", func(c *Config) { c.Pipeline.MaxBodyBytes = -1 }},
		{"fraction zero", func(c *Config) { c.Pipeline.PromptBudgetFraction = 0 }},
		{"fraction above one", func(c *Config) { c.Pipeline.PromptBudgetFraction = 1.5 }},
	}

	require.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
