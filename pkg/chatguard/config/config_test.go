package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_YAML tests loading a full YAML config.
func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: anthropic
  model: claude-3-5-sonnet-latest
  api_key: sk-test
  max_tokens: 2048
store:
  path: /var/lib/chatguard/threads.db
audit:
  path: /var/lib/chatguard/audit.db
retry:
  max_attempts: 5
  initial_backoff: 500ms
  max_backoff: 10s
refusal: "Custom refusal."
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, "/var/lib/chatguard/threads.db", cfg.Store.Path)
	assert.Equal(t, "/var/lib/chatguard/audit.db", cfg.Audit.Path)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff.Std())
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxBackoff.Std())
	assert.Equal(t, "Custom refusal.", cfg.Refusal)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestLoad_JSON tests the JSON format path.
func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
	"llm": {"provider": "mock"},
	"retry": {"max_attempts": 2, "initial_backoff": "2s"}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialBackoff.Std())
}

// TestLoad_EnvExpansion tests ${VAR} substitution.
func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-from-env")

	path := writeFile(t, "config.yaml", `
llm:
  provider: openai
  api_key: ${TEST_API_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
}

// TestLoad_DefaultsPreserved tests that unspecified fields keep defaults.
func TestLoad_DefaultsPreserved(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: mock
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff.Std())
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoad_Errors tests failure modes.
func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "config.toml", "provider = 'mock'")
		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
llm:
  provider: mock
retry:
  initial_backoff: shortly
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "invalid duration")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "llm: [")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

// TestValidate tests configuration invariants.
func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty provider",
			mutate:  func(c *Config) { c.LLM.Provider = "" },
			wantErr: "llm.provider is required",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "watson" },
			wantErr: "unknown llm.provider",
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.LLM.Provider = "anthropic" },
			wantErr: "llm.api_key is required",
		},
		{
			name: "ollama without key is fine",
			mutate: func(c *Config) {
				c.LLM.Provider = "ollama"
			},
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}
