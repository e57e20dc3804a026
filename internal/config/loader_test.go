package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 180*time.Second, cfg.Server.HTTP.WriteTimeout)
	assert.Equal(t, "openai", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Providers["openai"].Model)
	assert.Empty(t, cfg.LLM.Providers["openai"].APIKey)
	assert.Equal(t, "general", cfg.Generation.DefaultVariant)
	assert.Equal(t, "X-LLM-API-Key", cfg.Generation.CredentialHeader)
	assert.False(t, cfg.Cache.Redis.Enabled)
	assert.False(t, cfg.Security.RateLimit.Enabled)
}

func TestLoadFrom_FileAndEnvOverlay(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
server:
  http:
    port: 9090
llm:
  default_provider: openai
  providers:
    openai:
      api_key: ${TEST_OPENAI_KEY}
      model: ${TEST_MODEL_UNSET:gpt-4o}
security:
  rate_limit:
    enabled: true
    limit: 5
    window: 30s
`)
	writeConfig(t, dir, "config.staging.yaml", `
server:
  http:
    port: 9191
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.HTTP.Port)
	assert.Equal(t, "sk-from-env", cfg.LLM.Providers["openai"].APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].Model)
	assert.Equal(t, 5, cfg.Security.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimit.Window)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  http:\n    port: 70000\n"},
		{"unknown default provider", "llm:\n  default_provider: nope\n"},
		{"rate limit without window", "security:\n  rate_limit:\n    enabled: true\n    limit: 0\n"},
		{"broken yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.yaml", tt.body)
			_, err := LoadFrom(dir)
			assert.Error(t, err)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_SET", "value")

	assert.Equal(t, "a value b", expandEnv("a ${EXPAND_SET} b"))
	assert.Equal(t, "fallback", expandEnv("${EXPAND_UNSET_X:fallback}"))
	assert.Equal(t, "", expandEnv("${EXPAND_UNSET_X:}"))
	assert.Equal(t, "${EXPAND_UNSET_X}", expandEnv("${EXPAND_UNSET_X}"))
}

func TestLLMConfig_Provider(t *testing.T) {
	c := &LLMConfig{
		DefaultProvider: "openai",
		Providers:       map[string]ProviderConfig{"openai": {Model: "m"}},
	}

	name, p, ok := c.Provider("")
	assert.True(t, ok)
	assert.Equal(t, "openai", name)
	assert.Equal(t, "m", p.Model)

	_, _, ok = c.Provider("other")
	assert.False(t, ok)

	var nilCfg *LLMConfig
	_, _, ok = nilCfg.Provider("openai")
	assert.False(t, ok)
}
