package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Log         LogConfig         `mapstructure:"log"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Security    SecurityConfig    `mapstructure:"security"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Tools       ToolsConfig       `mapstructure:"tools"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Search      SearchConfig      `mapstructure:"search"`
	DataSources DataSourcesConfig `mapstructure:"data_sources"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	ChatPerMinute    int  `mapstructure:"chat_per_minute"`
	DefaultPerMinute int  `mapstructure:"default_per_minute"`
}

type SecurityConfig struct {
	// APIKey 为空时不校验 X-API-Key
	APIKey          string `mapstructure:"api_key"`
	MaxRequestBytes int64  `mapstructure:"max_request_bytes"`
}

// PipelineConfig 生成管线参数
type PipelineConfig struct {
	DefaultStyle           string `mapstructure:"default_style"`
	DefaultPerformanceMode string `mapstructure:"default_performance_mode"`
	// MaxBodyBytes 上游请求体字节上限，0 表示不限制
	MaxBodyBytes         int               `mapstructure:"max_body_bytes"`
	BudgetMode           string            `mapstructure:"budget_mode"`
	PromptBudgetFraction float64           `mapstructure:"prompt_budget_fraction"`
	HeadroomBytes        int               `mapstructure:"headroom_bytes"`
	AnalyzerCandidates   []CandidateConfig `mapstructure:"analyzer_candidates"`
	GenerationTimeout    time.Duration     `mapstructure:"generation_timeout"`
	AnalyzerTimeout      time.Duration     `mapstructure:"analyzer_timeout"`
	SearchTimeout        time.Duration     `mapstructure:"search_timeout"`
	DataSourceTimeout    time.Duration     `mapstructure:"data_source_timeout"`
	RefusalPhrases       []string          `mapstructure:"refusal_phrases"`
	Images               ImagePolicyConfig `mapstructure:"images"`
}

type CandidateConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// ImagePolicyConfig 覆盖默认的图片展示正则
type ImagePolicyConfig struct {
	VisualPatterns    []string `mapstructure:"visual_patterns"`
	NonVisualPatterns []string `mapstructure:"non_visual_patterns"`
}

// ToolsConfig 工具环境锁：on / off / 空（交给调用方）
type ToolsConfig struct {
	WebSearch    string `mapstructure:"web_search"`
	Geolocation  string `mapstructure:"geolocation"`
	History      string `mapstructure:"history"`
	AIClassifier string `mapstructure:"ai_classifier"`
	DataSources  string `mapstructure:"data_sources"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Gemini    ProviderConfig `mapstructure:"gemini"`
	LiteLLM   ProviderConfig `mapstructure:"litellm"`
	Doubao    ProviderConfig `mapstructure:"doubao"`
	Qwen      ProviderConfig `mapstructure:"qwen"`
}

type ProviderConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	Model              string        `mapstructure:"model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	DebugRequests      bool          `mapstructure:"debug_requests"`
}

type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
	Depth      string `mapstructure:"depth"`
}

type DataSourcesConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:4200", "http://localhost:5173", "http://localhost:5174", "http://localhost:3000",
	})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Accept", "X-API-Key"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.chat_per_minute", 20)
	v.SetDefault("rate_limit.default_per_minute", 60)

	v.SetDefault("security.api_key", "")
	v.SetDefault("security.max_request_bytes", 1_000_000)

	v.SetDefault("pipeline.default_style", "content")
	v.SetDefault("pipeline.default_performance_mode", "auto")
	v.SetDefault("pipeline.max_body_bytes", 0)
	v.SetDefault("pipeline.budget_mode", "headroom")
	v.SetDefault("pipeline.prompt_budget_fraction", 0.6)
	v.SetDefault("pipeline.headroom_bytes", 4096)
	v.SetDefault("pipeline.generation_timeout", 60*time.Second)
	v.SetDefault("pipeline.analyzer_timeout", 10*time.Second)
	v.SetDefault("pipeline.search_timeout", 15*time.Second)
	v.SetDefault("pipeline.data_source_timeout", 60*time.Second)

	for _, key := range []string{"web_search", "geolocation", "history", "ai_classifier", "data_sources"} {
		v.SetDefault("tools."+key, "")
	}

	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.openai.model", "gpt-4.1")
	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("providers.gemini.model", "gemini-2.5-flash-preview-05-20")
	v.SetDefault("providers.litellm.base_url", "")
	v.SetDefault("providers.litellm.model", "gpt-4o-mini")
	v.SetDefault("providers.doubao.model", "doubao-seed-1-6-flash-250615")
	v.SetDefault("providers.qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("providers.qwen.model", "qwen-plus")
	for _, p := range []string{"openai", "anthropic", "gemini", "litellm", "doubao", "qwen"} {
		v.SetDefault("providers."+p+".api_key", "")
		v.SetDefault("providers."+p+".timeout", 60*time.Second)
	}

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.depth", "basic")

	v.SetDefault("data_sources.config_path", "./configs/data_sources.yaml")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 读取配置：.env → 配置文件 → A2UI_ 前缀环境变量 → 约定俗成的厂商环境变量
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("A2UI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvFallbacks(c)

	if len(c.Pipeline.AnalyzerCandidates) == 0 {
		c.Pipeline.AnalyzerCandidates = DefaultAnalyzerCandidates()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg = c
	return c, nil
}

// 配置文件优先，如果配置文件中没有设置，则使用环境变量
func applyEnvFallbacks(c *Config) {
	fallback := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if val := os.Getenv(k); val != "" {
				*dst = val
				return
			}
		}
	}

	fallback(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	fallback(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fallback(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&c.Providers.LiteLLM.APIKey, "LITELLM_API_KEY")
	fallback(&c.Providers.LiteLLM.BaseURL, "LITELLM_BASE_URL")
	fallback(&c.Providers.Doubao.APIKey, "ARK_API_KEY", "DOUBAO_API_KEY")
	fallback(&c.Providers.Qwen.APIKey, "DASHSCOPE_API_KEY")
	fallback(&c.Search.APIKey, "TAVILY_API_KEY")
	fallback(&c.Security.APIKey, "A2UI_API_KEY")

	fallback(&c.Tools.WebSearch, "A2UI_LOCK_WEB_SEARCH")
	fallback(&c.Tools.Geolocation, "A2UI_LOCK_GEOLOCATION")
	fallback(&c.Tools.History, "A2UI_LOCK_HISTORY")
	fallback(&c.Tools.AIClassifier, "A2UI_LOCK_AI_CLASSIFIER")
	fallback(&c.Tools.DataSources, "A2UI_LOCK_DATA_SOURCES")

	if origins := os.Getenv("A2UI_CORS_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		c.CORS.AllowedOrigins = list
	}
}

// DefaultAnalyzerCandidates 意图分析的快速模型，按优先级排列
func DefaultAnalyzerCandidates() []CandidateConfig {
	return []CandidateConfig{
		{Provider: "openai", Model: "gpt-4.1-mini"},
		{Provider: "litellm", Model: "gpt-4o-mini"},
		{Provider: "anthropic", Model: "claude-3-5-haiku-20241022"},
		{Provider: "gemini", Model: "gemini-2.5-flash-preview-05-20"},
		{Provider: "qwen", Model: "qwen-turbo"},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Pipeline.DefaultPerformanceMode {
	case "auto", "comprehensive", "optimized":
	default:
		return fmt.Errorf("invalid pipeline.default_performance_mode %q", c.Pipeline.DefaultPerformanceMode)
	}
	switch c.Pipeline.BudgetMode {
	case "headroom", "downgrade":
	default:
		return fmt.Errorf("invalid pipeline.budget_mode %q", c.Pipeline.BudgetMode)
	}
	if c.Pipeline.MaxBodyBytes < 0 {
		return fmt.Errorf("pipeline.max_body_bytes must not be negative")
	}
	if f := c.Pipeline.PromptBudgetFraction; f <= 0 || f > 1 {
		return fmt.Errorf("pipeline.prompt_budget_fraction must be in (0, 1], got %v", f)
	}
	return nil
}

func Get() *Config {
	return cfg
}
