package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wallet-exchange-go/internal/models"
)

const testProvidersYAML = `
providers:
  - name: AquaFinance Capital
    did: did:dht:3fkz5ssfxbriwks3iy5nwys3q5kyx64ettp9wfn1yfekfkiguj1y
    endpoint: http://localhost:9000/
    pairs:
      - GHS to USDC
      - USD to KES
  - name: Flowback Financial
    did: did:dht:zkp5gbsqgzn69b3y5dtt5nnpjtdq6sxyukpzo68npsf79bmtb9zy
    endpoint: http://localhost:9001
    pairs:
      - USD to EUR
`

func writeProviders(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write providers file: %v", err)
	}
	return path
}

func TestLoadDirectory(t *testing.T) {
	dir, err := LoadDirectory(writeProviders(t, testProvidersYAML))
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}

	providers := dir.Providers()
	if len(providers) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(providers))
	}
	if !providers[0].Supports("USD", "KES") {
		t.Error("Expected AquaFinance to support USD to KES")
	}

	endpoint, err := dir.Endpoint("did:dht:3fkz5ssfxbriwks3iy5nwys3q5kyx64ettp9wfn1yfekfkiguj1y")
	if err != nil {
		t.Fatalf("Endpoint failed: %v", err)
	}
	if endpoint != "http://localhost:9000" {
		t.Errorf("Expected trailing slash trimmed, got %s", endpoint)
	}

	if _, err := dir.Endpoint("did:dht:nobody"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestLoadDirectory_Errors(t *testing.T) {
	if _, err := LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := LoadDirectory(writeProviders(t, "providers: []")); err == nil {
		t.Error("Expected error for empty directory")
	}
	if _, err := LoadDirectory(writeProviders(t, "providers: [")); err == nil {
		t.Error("Expected error for invalid yaml")
	}
}

func TestNewDirectory_Validation(t *testing.T) {
	tests := []struct {
		name      string
		providers []models.LiquidityProvider
	}{
		{"missing name", []models.LiquidityProvider{{DID: "did:dht:a", Endpoint: "http://a"}}},
		{"bad did", []models.LiquidityProvider{{Name: "A", DID: "a", Endpoint: "http://a"}}},
		{"missing endpoint", []models.LiquidityProvider{{Name: "A", DID: "did:dht:a"}}},
		{"duplicate", []models.LiquidityProvider{
			{Name: "A", DID: "did:dht:a", Endpoint: "http://a"},
			{Name: "B", DID: "did:dht:a", Endpoint: "http://b"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDirectory(tt.providers); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
