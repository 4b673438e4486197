package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Snippets  SnippetsConfig
	Sandbox   SandboxConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	HTTP      HTTPConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// SnippetsConfig locates the snippet tree.
type SnippetsConfig struct {
	Dir      string `envconfig:"SNIPPETS_DIR" default:"tasks"`
	Manifest string `envconfig:"SNIPPETS_MANIFEST" default:"snippets.yaml"`
}

// SandboxConfig bounds snippet execution.
type SandboxConfig struct {
	MaxCallStackSize int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	EvalTimeout      time.Duration `envconfig:"EVAL_TIMEOUT" default:"0s"`
	BreakerFailures  uint32        `envconfig:"BREAKER_FAILURES" default:"3"`
	BreakerCooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
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

// HTTPConfig holds response handling options.
type HTTPConfig struct {
	SanitizeHTML bool     `envconfig:"SANITIZE_HTML" default:"true"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Snippets.Dir) == "" {
		return fmt.Errorf("invalid config: SNIPPETS_DIR is empty")
	}
	if c.Sandbox.EvalTimeout < 0 {
		return fmt.Errorf("invalid config: EVAL_TIMEOUT must not be negative")
	}
	if c.Sandbox.MaxCallStackSize < 0 {
		return fmt.Errorf("invalid config: SANDBOX_MAX_CALL_STACK must not be negative")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Snippets: SnippetsConfig{
			Dir:      "tasks",
			Manifest: "snippets.yaml",
		},
		Sandbox: SandboxConfig{
			MaxCallStackSize: 1024,
			BreakerFailures:  3,
			BreakerCooldown:  30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		HTTP: HTTPConfig{
			SanitizeHTML: true,
			CORSOrigins:  []string{"*"},
		},
	}
}
