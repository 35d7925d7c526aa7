package datasource

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig data_sources.yaml 的顶层结构
type FileConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

type SourceConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Rules       string `yaml:"rules"`
	Enabled     *bool  `yaml:"enabled"`

	// rest
	BaseURL     string           `yaml:"base_url"`
	Auth        AuthConfig       `yaml:"auth"`
	OpenAPISpec string           `yaml:"openapi_spec"`
	Endpoints   []EndpointConfig `yaml:"endpoints"`

	// databricks
	Genie GenieConfig `yaml:"config"`

	// mcp
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Tools   []string          `yaml:"tools"`

	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	Type     string `yaml:"type"` // bearer | api_key | none
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
	Header   string `yaml:"header"`
}

type EndpointConfig struct {
	Path        string   `yaml:"path"`
	Method      string   `yaml:"method"`
	Description string   `yaml:"description"`
	Params      []string `yaml:"params"`
}

type GenieConfig struct {
	WorkspaceURL    string `yaml:"workspace_url"`
	WorkspaceURLEnv string `yaml:"workspace_url_env"`
	Token           string `yaml:"token"`
	TokenEnv        string `yaml:"token_env"`
	SpaceID         string `yaml:"space_id"`
}

// ReadFileConfig 文件不存在时返回空配置
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("read data sources config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse data sources config %s: %w", path, err)
	}
	return &fc, nil
}
