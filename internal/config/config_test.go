package config

import (
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
// t.Setenv automatically restores the previous values after the test.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret-at-least-16-chars!!")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL)
	}
	if cfg.DBPath != "data/bienestar.db" {
		t.Errorf("DBPath = %q, want data/bienestar.db", cfg.DBPath)
	}
	if cfg.GoogleRedirectURI != "http://localhost:8080/auth/google/callback" {
		t.Errorf("GoogleRedirectURI = %q", cfg.GoogleRedirectURI)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when SECRET_KEY is unset")
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject secrets shorter than 16 characters")
	}
}

func TestLoad_FrontendURLTrailingSlashStripped(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FRONTEND_URL", "https://app.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FrontendURL != "https://app.example.com" {
		t.Errorf("FrontendURL = %q, want trailing slash stripped", cfg.FrontendURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if !cfg.GoogleEnabled() {
		t.Error("GoogleEnabled() should be true when both client credentials are set")
	}
}

func TestGoogleEnabled_FalseWithoutCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GoogleEnabled() {
		t.Error("GoogleEnabled() should be false without client credentials")
	}
}
