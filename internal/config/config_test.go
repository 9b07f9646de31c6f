package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/light-merlin-dark/aia/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, "server:\n  env: test\n")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Engine.MaxRetries)
	assert.Equal(t, 60, cfg.Engine.TimeoutSeconds)
	assert.False(t, cfg.Redis.Enabled)
	assert.InDelta(t, 10.0, cfg.RateLimit.RequestsPerSecond, 1e-9)
}

func TestLoadConfigServicesAndPrices(t *testing.T) {
	writeConfig(t, `
server:
  port: "9999"
default_service: openai
max_retries: 3
services:
  openai:
    api_key: sk-static
    models:
      - gpt-4o
      - gpt-4-turbo
    prices:
      gpt-4o:
        input_per_million: 10
        output_per_million: 30
  local:
    type: ollama
    base_url: http://localhost:11434
    models:
      - llama3.1
`)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, "openai", cfg.Engine.DefaultService)

	svc, ok := cfg.Engine.Service("openai")
	require.True(t, ok)
	assert.Equal(t, "sk-static", svc.APIKey)
	assert.Equal(t, []string{"gpt-4o", "gpt-4-turbo"}, svc.Models)

	price, ok := cfg.Engine.PriceFor("openai", "gpt-4o")
	require.True(t, ok)
	assert.InDelta(t, 10, price.InputPerMillion, 1e-9)
	assert.InDelta(t, 30, price.OutputPerMillion, 1e-9)

	local, ok := cfg.Engine.Service("local")
	require.True(t, ok)
	assert.Equal(t, "ollama", local.Type)
}

func TestLoadConfigResolvesEnvIndirection(t *testing.T) {
	t.Setenv("MY_OPENAI_KEY", "sk-from-env")
	writeConfig(t, `
services:
  openai:
    api_key: "ENV:MY_OPENAI_KEY"
`)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	svc, ok := cfg.Engine.Service("openai")
	require.True(t, ok)
	assert.Equal(t, "sk-from-env", svc.APIKey)
}
