// Package config loads the API process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"taskmanager.org/internal/auth"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "TASKMANAGER_"

// Config is the full process configuration. It is loaded once at startup.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// PGDSN selects the PostgreSQL credential store; empty means in-memory.
	PGDSN string `env:"PG_DSN"`

	Auth      AuthConfig
	RateLimit RateLimitConfig `envPrefix:"LOGIN_RATE_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

// AuthConfig configures token issuance and the request gate.
type AuthConfig struct {
	SigningSecret string `env:"AUTH_SIGNING_SECRET"`
	// TokenTTLMillis may be zero or negative; such tokens are born expired.
	TokenTTLMillis    int64    `env:"AUTH_TOKEN_TTL_MILLIS" envDefault:"3600000"`
	APIPrefix         string   `env:"AUTH_API_PREFIX" envDefault:"/api/"`
	SkipPrefixes      []string `env:"AUTH_SKIP_PREFIXES" envDefault:"/v3/api-docs,/swagger-ui,/webjars/"`
	BootstrapEmail    string   `env:"AUTH_BOOTSTRAP_EMAIL"`
	BootstrapPassword string   `env:"AUTH_BOOTSTRAP_PASSWORD"`
}

// TokenTTL returns the configured lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMillis) * time.Millisecond
}

// RateLimitConfig bounds login attempts per client address.
type RateLimitConfig struct {
	PerSecond float64 `env:"PER_SEC" envDefault:"5"`
	Burst     int     `env:"BURST" envDefault:"10"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) sanitize() {
	c.Auth.APIPrefix = strings.TrimSpace(c.Auth.APIPrefix)
	if c.Auth.APIPrefix == "" {
		c.Auth.APIPrefix = "/api/"
	}
	skip := c.Auth.SkipPrefixes[:0]
	for _, p := range c.Auth.SkipPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			skip = append(skip, p)
		}
	}
	c.Auth.SkipPrefixes = skip
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	if len(c.Auth.SigningSecret) < auth.MinSecretLength {
		return fmt.Errorf("%sAUTH_SIGNING_SECRET must be at least %d bytes", EnvPrefix, auth.MinSecretLength)
	}
	if (c.Auth.BootstrapEmail == "") != (c.Auth.BootstrapPassword == "") {
		return fmt.Errorf("%sAUTH_BOOTSTRAP_EMAIL and %sAUTH_BOOTSTRAP_PASSWORD must be set together", EnvPrefix, EnvPrefix)
	}
	return nil
}
