package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SYNC_MAX_EPISODES", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DBDsn == "" {
		t.Errorf("expected default DSN, got empty")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.SyncMaxEpisodes != 5000 {
		t.Errorf("SyncMaxEpisodes = %d, want 5000", cfg.SyncMaxEpisodes)
	}
	if cfg.RecaptchaVerifyURL == "" {
		t.Errorf("expected default siteverify URL, got empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SYNC_HTTP_TIMEOUT", "3s")
	t.Setenv("SYNC_MAX_EPISODES", "100")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.SyncHTTPTimeout != 3*time.Second {
		t.Errorf("SyncHTTPTimeout = %v, want 3s", cfg.SyncHTTPTimeout)
	}
	if cfg.SyncMaxEpisodes != 100 {
		t.Errorf("SyncMaxEpisodes = %d, want 100", cfg.SyncMaxEpisodes)
	}
}

func TestLoadIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want default 24h for invalid input", cfg.SessionTTL)
	}
}

func TestValidateCaptchaReady(t *testing.T) {
	t.Setenv("RECAPTCHA_SECRET", "secret-key")
	cfg, _ := Load()
	if err := cfg.ValidateCaptchaReady(); err != nil {
		t.Errorf("expected valid captcha config, got %v", err)
	}
	t.Setenv("RECAPTCHA_SECRET", "")
	cfg, _ = Load()
	if err := cfg.ValidateCaptchaReady(); err == nil {
		t.Errorf("expected error when RECAPTCHA_SECRET missing")
	}
}
