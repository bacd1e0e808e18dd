package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestParse_Defaults(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", secret)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.PGDSN)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "/api/", cfg.Auth.APIPrefix)
	assert.Equal(t, []string{"/v3/api-docs", "/swagger-ui", "/webjars/"}, cfg.Auth.SkipPrefixes)
	assert.Equal(t, 5.0, cfg.RateLimit.PerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", secret)
	t.Setenv(EnvPrefix+"HTTP_ADDR", ":9090")
	t.Setenv(EnvPrefix+"PG_DSN", "postgres://localhost/tasks")
	t.Setenv(EnvPrefix+"AUTH_TOKEN_TTL_MILLIS", "-1000")
	t.Setenv(EnvPrefix+"AUTH_SKIP_PREFIXES", "/docs, ,/static/")
	t.Setenv(EnvPrefix+"AUTH_BOOTSTRAP_EMAIL", "admin@mail.com")
	t.Setenv(EnvPrefix+"AUTH_BOOTSTRAP_PASSWORD", "changeme")
	t.Setenv(EnvPrefix+"LOGIN_RATE_PER_SEC", "0.5")
	t.Setenv(EnvPrefix+"LOGIN_RATE_BURST", "2")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://localhost/tasks", cfg.PGDSN)
	assert.Equal(t, -time.Second, cfg.Auth.TokenTTL())
	assert.Equal(t, []string{"/docs", "/static/"}, cfg.Auth.SkipPrefixes)
	assert.Equal(t, "admin@mail.com", cfg.Auth.BootstrapEmail)
	assert.Equal(t, 0.5, cfg.RateLimit.PerSecond)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_ShortSecretIsFatal(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", "too-short")

	_, err := Parse()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "AUTH_SIGNING_SECRET"))
}

func TestParse_MissingSecretIsFatal(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", "")

	_, err := Parse()
	require.Error(t, err)
}

func TestParse_BootstrapPairRequired(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", secret)
	t.Setenv(EnvPrefix+"AUTH_BOOTSTRAP_EMAIL", "admin@mail.com")
	t.Setenv(EnvPrefix+"AUTH_BOOTSTRAP_PASSWORD", "")

	_, err := Parse()
	require.Error(t, err)
}

func TestParse_InvalidNumber(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH_SIGNING_SECRET", secret)
	t.Setenv(EnvPrefix+"AUTH_TOKEN_TTL_MILLIS", "soon")

	_, err := Parse()
	require.Error(t, err)
}
