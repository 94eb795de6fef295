package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, 60, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, 20, cfg.AI.RequestsPerMinute)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.InDelta(t, 0.3, cfg.OpenAI.Temperature, 0.001)
	assert.Equal(t, 2000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, int64(2000), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 10000, cfg.Retry.MaxBackoffMs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
backend:
  base_url: https://rates.internal
ai:
  provider: anthropic
store:
  driver: postgres
  database_url: postgres://localhost/rules
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://rates.internal", cfg.Backend.BaseURL)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("INVOICE_AGENT_STORE_DRIVER", "postgres")
	t.Setenv("INVOICE_AGENT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("INVOICE_AGENT_SERVER_PORT", "3000")
	t.Setenv("INVOICE_AGENT_OPENAI_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.OpenAI.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [unterminated"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Backend.BaseURL = "http://localhost:8080"
	cfg.AI.Provider = "openai"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "rules.db"
	cfg.Server.Port = 8090
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		surface string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "backend ok", surface: "backend"},
		{name: "backend missing url", surface: "backend", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: []string{"backend.base_url is required"}},
		{name: "ai openai ok", surface: "ai", mutate: func(c *Config) { c.OpenAI.Key = "sk" }},
		{name: "ai openai missing key", surface: "ai", wantErr: []string{"openai.key is required"}},
		{name: "ai anthropic missing key", surface: "ai", mutate: func(c *Config) { c.AI.Provider = "anthropic" }, wantErr: []string{"anthropic.key is required"}},
		{name: "ai unknown provider", surface: "ai", mutate: func(c *Config) { c.AI.Provider = "mistral" }, wantErr: []string{"ai.provider must be openai or anthropic"}},
		{name: "store ok", surface: "store"},
		{name: "store bad driver", surface: "store", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: []string{"store.driver must be sqlite or postgres"}},
		{name: "store missing url", surface: "store", mutate: func(c *Config) { c.Store.DatabaseURL = "" }, wantErr: []string{"store.database_url is required"}},
		{name: "serve ok", surface: "serve"},
		{name: "serve bad port", surface: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: []string{"server.port must be > 0"}},
		{
			name:    "serve collects all",
			surface: "serve",
			mutate: func(c *Config) {
				c.Backend.BaseURL = ""
				c.Store.DatabaseURL = ""
				c.Server.Port = 70000
			},
			wantErr: []string{"backend.base_url is required", "store.database_url is required", "server.port"},
		},
		{name: "unknown mode", surface: "unknown", wantErr: []string{"unknown mode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.surface)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
