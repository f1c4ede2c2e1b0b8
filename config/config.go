// Package config loads server configuration from a YAML file and applies
// overrides from MCPKIT_* environment variables.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/ndjson"
	"github.com/GordonDrop/mcpkit/server"
)

// Transport names.
const (
	TransportStdio     = "stdio"
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// RateLimitConfig configures the token bucket applied to every call.
// A zero Rate disables rate limiting.
type RateLimitConfig struct {
	Rate  int `yaml:"rate" env:"MCPKIT_RATE_LIMIT_RATE"`
	Burst int `yaml:"burst" env:"MCPKIT_RATE_LIMIT_BURST"`
}

// Config is the root configuration of a server.
type Config struct {
	// Name and Version identify the server in its manifest.
	Name    string `yaml:"name" env:"MCPKIT_NAME"`
	Version string `yaml:"version" env:"MCPKIT_VERSION"`

	LogLevel  string `yaml:"log_level" env:"MCPKIT_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"MCPKIT_LOG_FORMAT"`

	// Transport is one of stdio, http or websocket. Addr is ignored for stdio.
	Transport string `yaml:"transport" env:"MCPKIT_TRANSPORT"`
	Addr      string `yaml:"addr" env:"MCPKIT_ADDR"`

	// RequestTimeout bounds each call. Zero means no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MCPKIT_REQUEST_TIMEOUT"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	MaxLineSize  int `yaml:"max_line_size" env:"MCPKIT_MAX_LINE_SIZE"`
	MaxInputSize int `yaml:"max_input_size" env:"MCPKIT_MAX_INPUT_SIZE"`
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Name:        "mcpkit",
		Version:     "1.0.0",
		LogLevel:    "info",
		LogFormat:   "json",
		Transport:   TransportStdio,
		Addr:        ":8080",
		MaxLineSize: ndjson.DefaultMaxLineSize,
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		path, err := expandHome(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file: %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any MCPKIT_* variables that are set. A value
// that does not parse as its field's type is an error.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	err := envdecode.StrictDecode(cfg)
	// StrictDecode reports "no variable set" as ErrInvalidTarget.
	if err != nil && !errors.Is(err, envdecode.ErrInvalidTarget) {
		return errors.Wrap(err, "failed to apply environment overrides")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(home, path[1:]), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("config: name is required")
	}
	if strings.TrimSpace(c.Version) == "" {
		return errors.New("config: version is required")
	}
	if !server.ValidVersion(c.Version) {
		return errors.Newf("config: version %q must have the form MAJOR.MINOR.PATCH", c.Version)
	}
	switch c.Transport {
	case TransportStdio:
	case TransportHTTP, TransportWebSocket:
		if c.Addr == "" {
			return errors.Newf("config: addr is required for %s transport", c.Transport)
		}
	default:
		return errors.Newf("config: unknown transport %q", c.Transport)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return errors.Newf("config: unknown log format %q", c.LogFormat)
	}
	if c.RequestTimeout < 0 {
		return errors.New("config: request_timeout must not be negative")
	}
	if c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0 {
		return errors.New("config: rate_limit values must not be negative")
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst == 0 {
		return errors.New("config: rate_limit.burst is required when rate is set")
	}
	if c.MaxLineSize < 0 || c.MaxInputSize < 0 {
		return errors.New("config: size limits must not be negative")
	}
	return nil
}

// Logger builds the logger described by the log settings.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.New(w, c.LogLevel, c.LogFormat)
}
