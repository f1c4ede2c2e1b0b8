package config

import (
	"bytes"
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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mcpkit", cfg.Name)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, 1<<20, cfg.MaxLineSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
name: calculator
version: 2.1.0
transport: http
addr: 127.0.0.1:9000
request_timeout: 5s
rate_limit:
  rate: 10
  burst: 20
max_input_size: 4096
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "calculator", cfg.Name)
	assert.Equal(t, "2.1.0", cfg.Version)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, RateLimitConfig{Rate: 10, Burst: 20}, cfg.RateLimit)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	// Unset keys keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "name: from-file\ntransport: http\n")
	t.Setenv("MCPKIT_NAME", "from-env")
	t.Setenv("MCPKIT_RATE_LIMIT_RATE", "5")
	t.Setenv("MCPKIT_REQUEST_TIMEOUT", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 5, cfg.RateLimit.Rate)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "name: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file YAML")

	t.Setenv("MCPKIT_MAX_LINE_SIZE", "lots")
	_, err = Load("")
	assert.ErrorContains(t, err, "failed to apply environment overrides")
}

func TestApplyEnv_MalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"int", "MCPKIT_MAX_INPUT_SIZE", "big"},
		{"duration", "MCPKIT_REQUEST_TIMEOUT", "soon"},
		{"nested int", "MCPKIT_RATE_LIMIT_BURST", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := ApplyEnv(Default())
			assert.ErrorContains(t, err, "failed to apply environment overrides")
		})
	}
}

func TestApplyEnv_NothingSet(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty name", func(c *Config) { c.Name = " " }, "name is required"},
		{"empty version", func(c *Config) { c.Version = "" }, "version is required"},
		{"version not semver", func(c *Config) { c.Version = "banana" }, "MAJOR.MINOR.PATCH"},
		{"version two parts", func(c *Config) { c.Version = "1.2" }, "MAJOR.MINOR.PATCH"},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, "unknown transport"},
		{"http without addr", func(c *Config) { c.Transport, c.Addr = TransportHTTP, "" }, "addr is required"},
		{"websocket", func(c *Config) { c.Transport = TransportWebSocket }, ""},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "request_timeout"},
		{"rate without burst", func(c *Config) { c.RateLimit.Rate = 3 }, "burst is required"},
		{"negative size", func(c *Config) { c.MaxInputSize = -1 }, "size limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"

	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
