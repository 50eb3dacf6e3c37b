package api

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wallet-exchange-go/internal/database"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) *database.Service {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.CreateUser(context.Background(), "user1", "Alice", "alice@example.com"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return db
}

func convertRecord() models.TransactionRecord {
	return models.TransactionRecord{
		From:         "USD",
		To:           "KES",
		Type:         models.TxConvert,
		Amount:       decimal.NewFromInt(100),
		CurrencyCode: "USD",
	}
}

func TestCreateRecord_FillsDefaults(t *testing.T) {
	db := setupTestDb(t)
	svc := NewLedgerService(db)
	fixed := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	record, err := svc.CreateRecord(context.Background(), "user1", convertRecord())
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if record.Reference == "" {
		t.Error("Expected generated reference")
	}
	if !record.Timestamp.Equal(fixed) {
		t.Errorf("Expected timestamp %v, got %v", fixed, record.Timestamp)
	}
	if record.Status != models.TxProcessing {
		t.Errorf("Expected processing status, got %s", record.Status)
	}

	history, err := svc.History(context.Background(), "user1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Reference != record.Reference {
		t.Errorf("Unexpected history %+v", history)
	}
}

func TestCreateRecord_Validation(t *testing.T) {
	svc := NewLedgerService(setupTestDb(t))

	tests := []struct {
		name   string
		mutate func(*models.TransactionRecord)
	}{
		{"unknown type", func(r *models.TransactionRecord) { r.Type = "SWAP" }},
		{"unknown status", func(r *models.TransactionRecord) { r.Status = "pending" }},
		{"zero amount", func(r *models.TransactionRecord) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *models.TransactionRecord) { r.Amount = decimal.NewFromInt(-1) }},
		{"missing currency", func(r *models.TransactionRecord) { r.CurrencyCode = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := convertRecord()
			tt.mutate(&record)
			_, err := svc.CreateRecord(context.Background(), "user1", record)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestCreateRecord_DuplicateAndUnknownUser(t *testing.T) {
	svc := NewLedgerService(setupTestDb(t))
	ctx := context.Background()

	record := convertRecord()
	record.Reference = "ref-1"
	if _, err := svc.CreateRecord(ctx, "user1", record); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if _, err := svc.CreateRecord(ctx, "user1", record); !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
	if _, err := svc.CreateRecord(ctx, "ghost", record); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDb(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	record, err := svc.CreateRecord(ctx, "user1", convertRecord())
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.UpdateStatus(ctx, "user1", record.Reference, models.TxCompleted); err != nil {
			t.Fatalf("UpdateStatus attempt %d failed: %v", i+1, err)
		}
	}

	stored, err := db.GetRecord(ctx, "user1", record.Reference)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if stored.Status != models.TxCompleted || stored.UpdatedAt == nil {
		t.Errorf("Expected completed record with updatedAt, got %+v", stored)
	}

	if err := svc.UpdateStatus(ctx, "ghost", record.Reference, models.TxFailed); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, "user1", record.Reference, "bogus"); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Expected ErrInvalidRecord, got %v", err)
	}
}

func TestSubmitRating_RunningAverage(t *testing.T) {
	db := setupTestDb(t)
	svc := NewRatingService(db)
	ctx := context.Background()

	if _, err := svc.SubmitRating(ctx, "user1", "did:dht:p", 4); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	rep, err := svc.SubmitRating(ctx, "user1", "did:dht:p", 5)
	if err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	if rep.TotalRatings != 2 {
		t.Errorf("Expected 2 ratings, got %d", rep.TotalRatings)
	}
	if !rep.AverageRating.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("Expected average 4.5, got %s", rep.AverageRating)
	}

	rated, err := svc.HasRated(ctx, "user1", "did:dht:p")
	if err != nil || !rated {
		t.Errorf("Expected HasRated true, got %v (%v)", rated, err)
	}
	rated, _ = svc.HasRated(ctx, "user1", "did:dht:other")
	if rated {
		t.Error("Expected HasRated false for unrated provider")
	}
}

func TestSubmitRating_InvalidRating(t *testing.T) {
	svc := NewRatingService(setupTestDb(t))
	for _, rating := range []int{0, 6, -1} {
		if _, err := svc.SubmitRating(context.Background(), "user1", "did:dht:p", rating); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}

func TestSubmitRating_Concurrent(t *testing.T) {
	db := setupTestDb(t)
	svc := NewRatingService(db)
	ctx := context.Background()

	ratings := []int{1, 2, 3, 4, 5, 5, 4, 3}
	var wg sync.WaitGroup
	for _, r := range ratings {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			if _, err := svc.SubmitRating(ctx, "user1", "did:dht:p", r); err != nil {
				t.Errorf("SubmitRating failed: %v", err)
			}
		}(r)
	}
	wg.Wait()

	rep, err := svc.Reputation(ctx, "did:dht:p")
	if err != nil {
		t.Fatalf("Reputation failed: %v", err)
	}
	if rep.TotalRatings != len(ratings) {
		t.Errorf("Expected %d ratings, got %d", len(ratings), rep.TotalRatings)
	}
	// 27 / 8
	if !rep.AverageRating.Equal(decimal.RequireFromString("3.375")) {
		t.Errorf("Expected average 3.375, got %s", rep.AverageRating)
	}
}

func TestReputation_Unrated(t *testing.T) {
	svc := NewRatingService(setupTestDb(t))
	rep, err := svc.Reputation(context.Background(), "did:dht:new")
	if err != nil {
		t.Fatalf("Reputation failed: %v", err)
	}
	if rep.TotalRatings != 0 || !rep.AverageRating.IsZero() {
		t.Errorf("Expected empty reputation, got %+v", rep)
	}
}

// conflictingStore loses the optimistic-lock race a fixed number of times
type conflictingStore struct {
	store.ReputationStore
	conflicts int
	calls     int
	discarded []models.UserRating
}

func (c *conflictingStore) AppendUserRating(context.Context, string, models.UserRating) error {
	return nil
}

func (c *conflictingStore) DeleteUserRating(_ context.Context, _ string, rating models.UserRating) error {
	c.discarded = append(c.discarded, rating)
	return nil
}

func (c *conflictingStore) UpdateReputation(_ context.Context, did string, update store.ReputationUpdate) (*models.ProviderReputation, error) {
	c.calls++
	if c.calls <= c.conflicts {
		return nil, store.ErrConcurrentModification
	}
	return update(nil)
}

func TestSubmitRating_RetriesConflicts(t *testing.T) {
	fake := &conflictingStore{conflicts: 2}
	svc := NewRatingService(fake)

	rep, err := svc.SubmitRating(context.Background(), "user1", "did:dht:p", 3)
	if err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("Expected 3 update attempts, got %d", fake.calls)
	}
	if rep.TotalRatings != 1 {
		t.Errorf("Expected 1 rating, got %d", rep.TotalRatings)
	}
}

func TestSubmitRating_GivesUpAfterBoundedRetries(t *testing.T) {
	fake := &conflictingStore{conflicts: 100}
	svc := NewRatingService(fake)

	_, err := svc.SubmitRating(context.Background(), "user1", "did:dht:p", 3)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}
	if fake.calls != maxRatingAttempts {
		t.Errorf("Expected %d attempts, got %d", maxRatingAttempts, fake.calls)
	}
	if len(fake.discarded) != 1 || fake.discarded[0].ProviderDID != "did:dht:p" {
		t.Errorf("Expected the history entry to be discarded once, got %+v", fake.discarded)
	}
}

// brokenReputationStore stores history in SQLite but cannot write reputations
type brokenReputationStore struct {
	*database.Service
}

func (b brokenReputationStore) UpdateReputation(context.Context, string, store.ReputationUpdate) (*models.ProviderReputation, error) {
	return nil, errors.New("disk I/O error")
}

func TestSubmitRating_FailedUpdateKeepsProviderRateable(t *testing.T) {
	db := setupTestDb(t)
	ctx := context.Background()
	svc := NewRatingService(brokenReputationStore{db})

	if _, err := svc.SubmitRating(ctx, "user1", "did:dht:p", 4); err == nil {
		t.Fatal("Expected SubmitRating to fail")
	}

	rated, err := svc.HasRated(ctx, "user1", "did:dht:p")
	if err != nil {
		t.Fatalf("HasRated failed: %v", err)
	}
	if rated {
		t.Error("Failed rating left a history entry behind")
	}

	// The same user can rate once the store recovers.
	rep, err := NewRatingService(db).SubmitRating(ctx, "user1", "did:dht:p", 4)
	if err != nil {
		t.Fatalf("SubmitRating after recovery failed: %v", err)
	}
	if rep.TotalRatings != 1 {
		t.Errorf("Expected 1 rating, got %d", rep.TotalRatings)
	}
}
