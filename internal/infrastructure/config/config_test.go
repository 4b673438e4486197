package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	assert.Equal(t, "tasks", cfg.Snippets.Dir)
	assert.Equal(t, "snippets.yaml", cfg.Snippets.Manifest)

	assert.Equal(t, 1024, cfg.Sandbox.MaxCallStackSize)
	assert.Zero(t, cfg.Sandbox.EvalTimeout)
	assert.Equal(t, uint32(3), cfg.Sandbox.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Sandbox.BreakerCooldown)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.True(t, cfg.HTTP.SanitizeHTML)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                   "9000",
		"HOST":                   "127.0.0.1",
		"SNIPPETS_DIR":           "/srv/snippets",
		"SNIPPETS_MANIFEST":      "index.yaml",
		"SANDBOX_MAX_CALL_STACK": "64",
		"EVAL_TIMEOUT":           "3s",
		"BREAKER_FAILURES":       "5",
		"BREAKER_COOLDOWN":       "1m",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
		"RATE_LIMIT_RPS":         "500",
		"RATE_LIMIT_BURST":       "1000",
		"RATE_LIMIT_ENABLED":     "false",
		"SANITIZE_HTML":          "false",
		"CORS_ORIGINS":           "http://a.test,http://b.test",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "/srv/snippets", cfg.Snippets.Dir)
	assert.Equal(t, "index.yaml", cfg.Snippets.Manifest)
	assert.Equal(t, 64, cfg.Sandbox.MaxCallStackSize)
	assert.Equal(t, 3*time.Second, cfg.Sandbox.EvalTimeout)
	assert.Equal(t, uint32(5), cfg.Sandbox.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.Sandbox.BreakerCooldown)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.HTTP.SanitizeHTML)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"malformed rate", "RATE_LIMIT_RPS", "many"},
		{"negative timeout", "EVAL_TIMEOUT", "-1s"},
		{"negative stack", "SANDBOX_MAX_CALL_STACK", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("EVAL_TIMEOUT", "soon")
	assert.Equal(t, Default(), LoadOrDefault())
}
