package formance

import (
	"testing"
	"time"

	"wallet-exchange-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestAccountSegment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4b1f-aa_09", "4b1f-aa_09"},
		{"ref.with/odd:chars", "ref_with_odd_chars"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := accountSegment(tt.input); got != tt.want {
			t.Errorf("accountSegment(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRecordAddress(t *testing.T) {
	got := recordAddress("user1", "rfq_01:abc")
	want := "users:user1:records:rfq_01_abc"
	if got != want {
		t.Errorf("recordAddress = %q, want %q", got, want)
	}
	if isUserAddress(got) {
		t.Error("record address should not be a user address")
	}
	if !isUserAddress(userAddress("user1")) {
		t.Error("expected user address to match")
	}
}

func TestRecordMetadataRoundTrip(t *testing.T) {
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	record := models.TransactionRecord{
		Reference:         "ref-1",
		From:              "USD",
		To:                "KES",
		Type:              models.TxConvert,
		Amount:            decimal.RequireFromString("12.34"),
		CurrencyCode:      "USD",
		Timestamp:         time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:            models.TxCompleted,
		Narration:         "Exchange USD to KES",
		LiquidityProvider: "did:dht:p",
		UpdatedAt:         &updated,
	}

	meta := recordToMetadata("user1", record)
	if meta["entity_type"] != recordEntityType || meta["user_id"] != "user1" {
		t.Fatalf("missing index metadata: %v", meta)
	}

	got, err := metadataToRecord(meta)
	if err != nil {
		t.Fatalf("metadataToRecord failed: %v", err)
	}
	if !got.Amount.Equal(record.Amount) || got.Reference != record.Reference || got.Status != record.Status {
		t.Errorf("unexpected record %+v", got)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(updated) {
		t.Errorf("expected updatedAt %v, got %v", updated, got.UpdatedAt)
	}
}

func TestMetadataToRecord_Invalid(t *testing.T) {
	if _, err := metadataToRecord(map[string]string{"amount": "abc"}); err == nil {
		t.Error("expected error for invalid amount")
	}
	if _, err := metadataToRecord(map[string]string{"amount": "1", "timestamp": "yesterday"}); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []models.TransactionRecord{
		{Reference: "old", Timestamp: base},
		{Reference: "new", Timestamp: base.Add(time.Hour)},
	}
	sortNewestFirst(records)
	if records[0].Reference != "new" {
		t.Errorf("expected newest first, got %s", records[0].Reference)
	}
}

func TestAccountToUser(t *testing.T) {
	acct := &shared.V2Account{
		Address: "users:user1",
		Metadata: map[string]string{
			"name":        "Alice",
			"email":       "alice@example.com",
			"did":         "{}",
			"credentials": `["jwt-a","jwt-b"]`,
		},
	}
	user := accountToUser(acct)
	if user.Id != "user1" || user.Email != "alice@example.com" || user.DID != "{}" {
		t.Errorf("unexpected user %+v", user)
	}
	if len(user.Credentials) != 2 || user.Credentials[1] != "jwt-b" {
		t.Errorf("expected two credentials, got %v", user.Credentials)
	}

	acct.Metadata["credentials"] = "not json"
	if user := accountToUser(acct); len(user.Credentials) != 0 {
		t.Errorf("expected malformed credentials to be dropped, got %v", user.Credentials)
	}
}

func TestErrorClassifiers(t *testing.T) {
	// nil error is neither a conflict nor a not-found
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isNotFoundError(nil) {
		t.Error("nil should not be a not-found error")
	}
}
