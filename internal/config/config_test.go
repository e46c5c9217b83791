package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSubstituteEnv(t *testing.T) {
	t.Setenv("CLOUSEAU_TEST_KEY", "secret")
	t.Setenv("CLOUSEAU_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${CLOUSEAU_TEST_KEY}", "key: secret"},
		{"key: ${CLOUSEAU_TEST_MISSING:-fallback}", "key: fallback"},
		{"key: ${CLOUSEAU_TEST_KEY:-fallback}", "key: secret"},
		{"key: ${CLOUSEAU_TEST_MISSING}", "key: "},
		{"key: ${CLOUSEAU_TEST_EMPTY:-fallback}", "key: "},
		{"key: $CLOUSEAU_TEST_KEY", "key: $CLOUSEAU_TEST_KEY"},
		{"url: ${CLOUSEAU_TEST_MISSING:-http://localhost:8080}", "url: http://localhost:8080"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstituteEnv(tt.in), tt.in)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "clouseau.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "You are a helpful AI assistant.", cfg.Models.DefaultSystemPrompt)
	assert.True(t, cfg.Models.RetryOnFailure)
	assert.Equal(t, 3, cfg.Models.MaxRetries)
	assert.Nil(t, cfg.Models.DefaultMaxTokens)
	assert.False(t, cfg.Performance.CacheResponses)
	assert.Empty(t, cfg.LLMProviders)
	assert.False(t, cfg.MockMode())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadProvidersWithSubstitution(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	path := writeConfig(t, `
server:
  port: 9000
general:
  log_level: DEBUG
models:
  request_timeout: 45
llm_providers:
  - name: claude
    provider_type: anthropic
    endpoint: ${ANTHROPIC_ENDPOINT:-https://api.anthropic.com}
    api_key: ${ANTHROPIC_API_KEY}
    default_model: claude-3-5-sonnet-20241022
    max_tokens: 1024
    temperature: 0.3
  - name: gpt
    provider_type: openai
    endpoint: https://api.openai.com/v1
    default_model: gpt-4o-mini
    timeout: 10
  - name: off
    provider_type: mock
    default_model: mock-model
    enabled: false
default_provider: claude
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.General.LogLevel)
	require.Len(t, cfg.LLMProviders, 3)
	assert.Equal(t, "sk-ant", cfg.LLMProviders[0].APIKey)
	assert.Equal(t, "https://api.anthropic.com", cfg.LLMProviders[0].Endpoint)
	require.NotNil(t, cfg.LLMProviders[0].MaxTokens)
	assert.Equal(t, 1024, *cfg.LLMProviders[0].MaxTokens)
	assert.Nil(t, cfg.LLMProviders[1].MaxTokens)
	assert.False(t, cfg.LLMProviders[2].IsEnabled())

	rc := cfg.RegistryConfig()
	assert.Equal(t, "claude", rc.DefaultProvider)
	require.Len(t, rc.Providers, 2)
	assert.Equal(t, "anthropic", rc.Providers[0].Type)
	assert.Equal(t, 45*time.Second, rc.Providers[0].Timeout)
	assert.Equal(t, 10*time.Second, rc.Providers[1].Timeout)
	require.NotNil(t, rc.Providers[0].Temperature)
	assert.InDelta(t, 0.3, *rc.Providers[0].Temperature, 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("CLOUSEAU_SERVER_PORT", "9100")
	t.Setenv("CLOUSEAU_MODE", "MOCK")
	t.Setenv("CLOUSEAU_PERFORMANCE_CACHE_RESPONSES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.MockMode())
	assert.True(t, cfg.Performance.CacheResponses)
	assert.True(t, cfg.RegistryConfig().Mock)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
llm_providers:
  - name: bad
    provider_type: bard
    default_model: x
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, "general:\n  log_level: loud\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: \"file:test.db\"\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
}
