package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	result, err := Load()
	require.NoError(t, err)

	assert.Empty(t, result.Path)
	cfg := result.Config
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"openrouter", "together", "groq", "huggingface", "ollama"}, cfg.Gateway.Chain)
	assert.Equal(t, 60, cfg.Gateway.Timeout)
	assert.Equal(t, 500, cfg.Gateway.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Gateway.Temperature, 1e-9)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "local", cfg.Cache.Type)
}

func TestLoad_FromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
gateway:
  chain: [groq, ollama]
  timeout: 20
providers:
  groq:
    type: groq
    api_key: "${TEST_GROQ_KEY}"
    default_model: "llama-3.1-8b-instant"
  ollama-remote:
    type: ollama
    base_url: "${TEST_OLLAMA_URL:-http://gpu-box:11434}"
    headers:
      X-Tenant: "${TEST_TENANT:-acme}"
`)
	t.Setenv("TEST_GROQ_KEY", "gsk_live_123456")

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)

	cfg := result.Config
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"groq", "ollama"}, cfg.Gateway.Chain)
	assert.Equal(t, 20, cfg.Gateway.Timeout)

	groq := cfg.Providers["groq"]
	assert.Equal(t, "gsk_live_123456", groq.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", groq.DefaultModel)

	remote := cfg.Providers["ollama-remote"]
	assert.Equal(t, "http://gpu-box:11434", remote.BaseURL)
	assert.Equal(t, "acme", remote.Headers["X-Tenant"])
}

func TestLoad_UnresolvedCredentialStaysPlaceholder(t *testing.T) {
	writeConfig(t, `
providers:
  together:
    api_key: "${TEST_UNSET_TOGETHER_KEY}"
`)

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "${TEST_UNSET_TOGETHER_KEY}", result.Config.Providers["together"].APIKey)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfig(t, `
server:
  port: "9090"
`)
	t.Setenv("PORT", "7070")

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", result.Config.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	writeConfig(t, "server: [unclosed")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(cfg *Config) {}},
		{name: "zero timeout", mutate: func(cfg *Config) { cfg.Gateway.Timeout = 0 }, wantErr: "gateway.timeout"},
		{name: "negative max tokens", mutate: func(cfg *Config) { cfg.Gateway.MaxTokens = -1 }, wantErr: "gateway.max_tokens"},
		{name: "temperature too high", mutate: func(cfg *Config) { cfg.Gateway.Temperature = 3 }, wantErr: "gateway.temperature"},
		{name: "http timeout below gateway timeout", mutate: func(cfg *Config) { cfg.HTTP.Timeout = 30 }, wantErr: "http.timeout"},
		{name: "header timeout below gateway timeout", mutate: func(cfg *Config) { cfg.HTTP.ResponseHeaderTimeout = 10 }, wantErr: "http.response_header_timeout"},
		{name: "negative http timeout", mutate: func(cfg *Config) { cfg.HTTP.Timeout = -1 }, wantErr: "must not be negative"},
		{name: "http limits disabled", mutate: func(cfg *Config) {
			cfg.HTTP.Timeout = 0
			cfg.HTTP.ResponseHeaderTimeout = 0
		}},
		{name: "http timeout equal to gateway timeout", mutate: func(cfg *Config) { cfg.HTTP.Timeout = 60 }},
		{name: "unknown storage", mutate: func(cfg *Config) { cfg.Storage.Type = "dynamo" }, wantErr: "unknown storage type"},
		{name: "unknown cache", mutate: func(cfg *Config) { cfg.Cache.Type = "memcached" }, wantErr: "unknown cache type"},
		{name: "redis without url", mutate: func(cfg *Config) { cfg.Cache.Type = "redis" }, wantErr: "cache.redis.url"},
		{name: "unknown log format", mutate: func(cfg *Config) { cfg.Logging.Format = "xml" }, wantErr: "unknown log format"},
		{
			name: "metrics endpoint without slash",
			mutate: func(cfg *Config) {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Endpoint = "metrics"
			},
			wantErr: "metrics.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
