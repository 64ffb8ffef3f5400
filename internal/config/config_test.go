package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":5001" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":5001")
	}
	if cfg.DBPath != "pointqr.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "pointqr.db")
	}
	if cfg.RateLimit != 60 {
		t.Errorf("RateLimit = %d, want 60", cfg.RateLimit)
	}
	if cfg.GrantWindow() != 5*time.Minute {
		t.Errorf("GrantWindow = %v, want 5m", cfg.GrantWindow())
	}
	if cfg.Sweep() != time.Minute {
		t.Errorf("Sweep = %v, want 1m", cfg.Sweep())
	}
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout())
	}
	if cfg.LedgerURL != "http://localhost:5001" {
		t.Errorf("LedgerURL = %q", cfg.LedgerURL)
	}
	if got := cfg.Origins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("Origins = %v, want [*]", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POINTQR_ADDR", ":9090")
	t.Setenv("POINTQR_LEDGER_TIMEOUT", "3s")
	t.Setenv("POINTQR_CUSTOMER_ID", "42")
	t.Setenv("POINTQR_CORS_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9090")
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Timeout())
	}
	if cfg.CustomerID != 42 {
		t.Errorf("CustomerID = %d, want 42", cfg.CustomerID)
	}
	if got := cfg.Origins(); len(got) != 2 || got[1] != "https://b.example.com" {
		t.Errorf("Origins = %v", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("POINTQR_SHOP_ID=2\nPOINTQR_GRANT_TTL=90s\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShopID != 2 {
		t.Errorf("ShopID = %d, want 2", cfg.ShopID)
	}
	if cfg.GrantWindow() != 90*time.Second {
		t.Errorf("GrantWindow = %v, want 90s", cfg.GrantWindow())
	}
}

func TestLoadValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("POINTQR_RATE_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative rate limit")
	}
	t.Setenv("POINTQR_RATE_LIMIT", "60")

	t.Setenv("POINTQR_LOG_FORMAT", "xml")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{GrantTTL: "soon", SweepInterval: "-1m", LedgerTimeout: ""}
	if cfg.GrantWindow() != 5*time.Minute {
		t.Errorf("GrantWindow = %v, want 5m", cfg.GrantWindow())
	}
	if cfg.Sweep() != time.Minute {
		t.Errorf("Sweep = %v, want 1m", cfg.Sweep())
	}
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout())
	}
}
