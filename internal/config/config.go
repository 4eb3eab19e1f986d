// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Tracing   TracingConfig
	Cache     CacheConfig
	Terminal  TerminalConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Health    HealthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// TracingConfig gates and targets the instrumentation layer.
type TracingConfig struct {
	Enabled     bool   `envconfig:"TRACING_ENABLED" default:"false"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"vm-websocket"`
	Endpoint    string `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318/v1/traces"`
	Exporter    string `envconfig:"TRACE_EXPORTER" default:"otlp"`
}

// CacheConfig sizes the in-process cache.
type CacheConfig struct {
	Size int           `envconfig:"CACHE_SIZE" default:"1024"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`
}

// TerminalConfig selects and configures the terminal backend.
type TerminalConfig struct {
	Backend string `envconfig:"TERMINAL_BACKEND" default:"pty"`
	Shell   string `envconfig:"TERMINAL_SHELL" default:""`

	Hostname string        `envconfig:"AWS_HOSTNAME" default:""`
	Username string        `envconfig:"AWS_USERNAME" default:""`
	KeyPath  string        `envconfig:"AWS_KEY_PATH" default:""`
	SSHPort  int           `envconfig:"AWS_PORT" default:"22"`
	Timeout  time.Duration `envconfig:"SSH_TIMEOUT" default:"10s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// HealthConfig drives the background health-check poller.
type HealthConfig struct {
	URL      string        `envconfig:"HEALTH_CHECK_URL" default:""`
	Interval time.Duration `envconfig:"HEALTH_CHECK_INTERVAL" default:"1m"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8000", Host: "0.0.0.0"},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "vm-websocket",
			Endpoint:    "http://localhost:4318/v1/traces",
			Exporter:    "otlp",
		},
		Cache:    CacheConfig{Size: 1024, TTL: 30 * time.Second},
		Terminal: TerminalConfig{Backend: "pty", SSHPort: 22, Timeout: 10 * time.Second},
		Logging:  LogConfig{Level: "info", Development: false},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Health: HealthConfig{Interval: time.Minute},
	}
}
