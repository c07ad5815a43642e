// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
// Configuration is read once at process start; the resulting value is
// handed to constructors and never mutated while requests are in flight.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"APP_PORT" envDefault:"8080"`
	Env  string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"

	// Content layout: the project root and the per-kind offsets the
	// resource locator joins logical names under.
	RootDir   string `env:"ROOT_DIR" envDefault:"."`
	ViewsDir  string `env:"VIEWS_DIR" envDefault:"views"`
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`

	// Render engines, selected by registry name. The first-pass name
	// doubles as the default extension for extensionless templates.
	FirstPass  string `env:"FIRST_PASS_ENGINE" envDefault:"md"`
	SecondPass string `env:"SECOND_PASS_ENGINE" envDefault:"html"`

	// ForceCache enables caching regardless of environment. Otherwise
	// caching is enabled only in production.
	ForceCache bool `env:"FORCE_CACHE"`

	// Valkey (Redis-compatible) L2 page cache. Empty host disables L2.
	ValkeyHost     string        `env:"VALKEY_HOST"`
	ValkeyPort     string        `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword string        `env:"VALKEY_PASSWORD"`
	PageTTL        time.Duration `env:"PAGE_CACHE_TTL" envDefault:"5m"`

	// Rate limiting for the public routes.
	RateLimit  int           `env:"RATE_LIMIT" envDefault:"300"`
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.FirstPass == cfg.SecondPass {
		return nil, fmt.Errorf("first- and second-pass engines must differ, both are %q", cfg.FirstPass)
	}

	return cfg, nil
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether derived representations are persisted.
// Production implies caching; FORCE_CACHE turns it on anywhere else.
func (c *Config) CacheEnabled() bool {
	return c.ForceCache || c.Env == "production"
}

// ValkeyConfigured reports whether an L2 page cache host was provided.
func (c *Config) ValkeyConfigured() bool {
	return c.ValkeyHost != ""
}
