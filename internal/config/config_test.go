package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ledger.Backend != LedgerSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Poll.InitialInterval != 2*time.Second || cfg.Poll.MaxAttempts != 30 {
		t.Errorf("Unexpected poll defaults %+v", cfg.Poll)
	}
	if cfg.Poll.Multiplier != 1.5 {
		t.Errorf("Expected multiplier 1.5, got %v", cfg.Poll.Multiplier)
	}
	if cfg.Cache.ProvidersFile != "providers.yaml" {
		t.Errorf("Expected providers.yaml, got %s", cfg.Cache.ProvidersFile)
	}
	if cfg.Credentials.IssuerURL != "https://mock-idv.tbddev.org" || cfg.Credentials.Country != "US" {
		t.Errorf("Unexpected credential defaults %+v", cfg.Credentials)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "formance")
	t.Setenv("POLL_MAX_ATTEMPTS", "5")
	t.Setenv("PFI_RATE_LIMIT", "20")
	t.Setenv("EXCHANGES_POLL_INTERVAL", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ledger.Backend != LedgerFormance {
		t.Errorf("Expected formance backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Poll.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", cfg.Poll.MaxAttempts)
	}
	if cfg.PFI.RateLimit != 20 {
		t.Errorf("Expected rate limit 20, got %d", cfg.PFI.RateLimit)
	}
	if cfg.Poll.ExchangesInterval != 10*time.Second {
		t.Errorf("Expected 10s, got %v", cfg.Poll.ExchangesInterval)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LEDGER_BACKEND", "postgres"},
		{"POLL_INITIAL_INTERVAL", "soon"},
		{"POLL_MULTIPLIER", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
