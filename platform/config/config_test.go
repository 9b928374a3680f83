package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("STALE_LEAD_THRESHOLD_DAYS", "")
	t.Setenv("STALE_LEAD_SCAN_INTERVAL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.GetEmailEnabled() {
		t.Fatal("expected email disabled without SMTP_HOST")
	}
	if cfg.GetStaleLeadThreshold() != 7*24*time.Hour {
		t.Fatalf("expected 7 day threshold, got %s", cfg.GetStaleLeadThreshold())
	}
	if cfg.GetStaleLeadScanInterval() != time.Hour {
		t.Fatalf("expected fallback scan interval of 1h, got %s", cfg.GetStaleLeadScanInterval())
	}
	if cfg.GetDigestCronSpec() != "0 7 * * *" {
		t.Fatalf("unexpected digest cron %q", cfg.GetDigestCronSpec())
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}

func TestLoadRequiresFromAddressWhenEmailEnabled(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when EMAIL_FROM_ADDRESS is missing")
	}
}
