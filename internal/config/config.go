// Package config loads the process-wide configuration from environment
// variables, once, at startup.
//
// Everything security-sensitive in the app (the JWT signing secret, the
// Google OAuth client credentials) flows from this one immutable struct.
// No package reads os.Getenv on its own; main.go calls Load and injects
// the pieces each component needs. That keeps the trust boundary in one
// place and makes every component constructible in tests with literals.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-sourced setting.
//
// The struct tags drive github.com/caarlos0/env: each field is read from
// the named variable, with the given default when unset.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/bienestar.db"`

	// JWTSecret signs every session token. There is no rotation: changing
	// it invalidates all outstanding tokens, and leaking it lets anyone
	// mint tokens for any account. That is the accepted trade-off of the
	// stateless bearer-token design.
	JWTSecret string        `env:"SECRET_KEY"`
	TokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	// GeminiAPIKey is optional. When empty the chat endpoint degrades to a
	// canned reply instead of calling the generative-language service.
	GeminiAPIKey string `env:"GOOGLE_API_KEY"`

	// FrontendURL is where the Google callback redirects with the issued
	// token, and the allowed CORS origin. Trailing slashes are stripped.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost"`
}

// Load parses the environment into a Config and validates it.
//
// SECRET_KEY is required: the original deployment shipped a hard-coded
// fallback secret, which meant a forgotten env var silently ran the whole
// auth system on a publicly known key. Failing at startup is the only
// safe behaviour.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: SECRET_KEY must be set")
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, errors.New("config: SECRET_KEY must be at least 16 characters")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}

	return cfg, nil
}

// GoogleEnabled reports whether the Google login routes can be served.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
