// Package config loads and validates the stocksim server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr           string `json:"addr" yaml:"addr"`
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"` // e.g. "2m", "30s"
}

// ParseRequestTimeout converts the request timeout to a duration; empty
// means no per-request deadline.
func (s ServerConfig) ParseRequestTimeout() (time.Duration, error) {
	if s.RequestTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.RequestTimeout)
}

// ProviderConfig holds market-data provider settings.
type ProviderConfig struct {
	BaseURL           string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute"`
	CachePath         string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"` // empty disables the bar cache
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug|info|warn|error
}

// LoadFromFile loads configuration from a YAML or JSON file (format chosen
// by trying YAML first, matching either extension).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := c.Server.ParseRequestTimeout(); err != nil {
		return fmt.Errorf("server.request_timeout: %w", err)
	}
	if c.Provider.RequestsPerMinute <= 0 {
		return fmt.Errorf("provider.requests_per_minute must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug|info|warn|error, got %q", c.Log.Level)
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: "2m",
		},
		Provider: ProviderConfig{
			RequestsPerMinute: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
