// Package config loads service configuration from YAML or JSON files.
// Values of the form ${VAR} are expanded from the environment, so secrets
// like API keys can live outside the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	LLM     LLMConfig   `yaml:"llm" json:"llm"`
	Store   StoreConfig `yaml:"store" json:"store"`
	Audit   AuditConfig `yaml:"audit" json:"audit"`
	Retry   RetryConfig `yaml:"retry" json:"retry"`
	Refusal string      `yaml:"refusal" json:"refusal"`
	Log     LogConfig   `yaml:"log" json:"log"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // anthropic, openai, ollama, mock
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// StoreConfig configures the thread store.
type StoreConfig struct {
	// Path to the SQLite database file. Empty selects the in-memory store.
	Path string `yaml:"path" json:"path"`
}

// AuditConfig configures the compliance audit log.
type AuditConfig struct {
	// Path to the SQLite database file. Empty disables audit recording.
	Path string `yaml:"path" json:"path"`
}

// RetryConfig tunes retry behavior for provider calls.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff" json:"max_backoff"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text or json
}

// Duration wraps time.Duration so config files can use "30s" syntax.
type Duration time.Duration

// UnmarshalYAML parses a duration string like "500ms" or "2m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON parses a quoted duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration suitable for local development:
// mock provider, in-memory store, no audit log.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  "mock",
			MaxTokens: 1024,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: Duration(time.Second),
			MaxBackoff:     Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file, expanding ${VAR} references from the
// environment. The format is chosen by extension: .yaml/.yml or .json.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), &cfg)
	case ".json":
		err = json.Unmarshal([]byte(expanded), &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "ollama", "mock":
	case "":
		return fmt.Errorf("llm.provider is required")
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if (c.LLM.Provider == "anthropic" || c.LLM.Provider == "openai") && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}
