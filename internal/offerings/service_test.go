package offerings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"wallet-exchange-go/internal/cache"
	"wallet-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	data   map[string][]models.Offering
	failed map[string]bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, data: map[string][]models.Offering{}, failed: map[string]bool{}}
}

func (f *fakeFetcher) GetOfferings(_ context.Context, did string) ([]models.Offering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[did]++
	if f.failed[did] {
		return nil, errors.New("provider unavailable")
	}
	return f.data[did], nil
}

func (f *fakeFetcher) count(did string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[did]
}

type brokenCache struct{ cache.KeyValue }

func (brokenCache) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (brokenCache) Set(string, []byte) error         { return errors.New("disk gone") }

func offering(did, id, in, out string) models.Offering {
	return models.Offering{
		Metadata: models.OfferingMetadata{From: did, Kind: "offering", ID: id},
		Data: models.OfferingData{
			PayoutUnitsPerPayinUnit: decimal.RequireFromString("0.9"),
			Payin:                   models.PayinDetails{CurrencyCode: in},
			Payout:                  models.PayoutDetails{CurrencyCode: out},
		},
	}
}

func newTestService(t *testing.T) (*Service, *fakeFetcher, cache.KeyValue) {
	t.Helper()
	kv, err := cache.NewBadgerCache("")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	f := newFakeFetcher()
	f.data["did:dht:a"] = []models.Offering{offering("did:dht:a", "o1", "USD", "EUR")}
	f.data["did:dht:b"] = []models.Offering{offering("did:dht:b", "o2", "USD", "KES")}
	return NewService(kv, f), f, kv
}

func TestGetOfferingsCachesAfterFirstFetch(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetOfferings(ctx, "did:dht:a")
	require.NoError(t, err)
	second, err := svc.GetOfferings(ctx, "did:dht:a")
	require.NoError(t, err)

	assert.Equal(t, 1, f.count("did:dht:a"))
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestInvalidateForcesRefetch(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOfferings(ctx, "did:dht:a")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate("did:dht:a"))
	_, err = svc.GetOfferings(ctx, "did:dht:a")
	require.NoError(t, err)

	assert.Equal(t, 2, f.count("did:dht:a"))
}

func TestInvalidateAllKeepsOtherKeys(t *testing.T) {
	svc, _, kv := newTestService(t)
	ctx := context.Background()

	require.NoError(t, kv.Set("preferences", []byte("{}")))
	_, err := svc.GetOfferings(ctx, "did:dht:a")
	require.NoError(t, err)
	_, err = svc.GetOfferings(ctx, "did:dht:b")
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateAll())

	keys, err := kv.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"preferences"}, keys)
}

func TestCacheFailureDoesNotFailRead(t *testing.T) {
	f := newFakeFetcher()
	f.data["did:dht:a"] = []models.Offering{offering("did:dht:a", "o1", "USD", "EUR")}
	svc := NewService(brokenCache{}, f)

	got, err := svc.GetOfferings(context.Background(), "did:dht:a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	svc, f, kv := newTestService(t)
	f.failed["did:dht:a"] = true

	err := svc.RefreshAll(context.Background(), []models.LiquidityProvider{
		{Name: "A", DID: "did:dht:a"},
		{Name: "B", DID: "did:dht:b"},
	})
	assert.Error(t, err)

	_, ok, _ := kv.Get("did:dht:b")
	assert.True(t, ok, "healthy provider is still cached")
	_, ok, _ = kv.Get("did:dht:a")
	assert.False(t, ok)
}

func TestGetAllOfferingsAndMatchingPairs(t *testing.T) {
	svc, f, _ := newTestService(t)
	f.failed["did:dht:b"] = true

	all := svc.GetAllOfferings(context.Background(), []models.LiquidityProvider{
		{Name: "A", DID: "did:dht:a"},
		{Name: "B", DID: "did:dht:b"},
	})
	require.Len(t, all, 1)

	assert.Len(t, MatchingPairs(all, "USD", "EUR"), 1)
	assert.Len(t, MatchingPairs(all, "USD", "KES"), 0)
	assert.Len(t, MatchingPairs(all, "", ""), 1)
}

func TestFind(t *testing.T) {
	svc, _, _ := newTestService(t)

	o, err := svc.Find(context.Background(), "did:dht:a", "o1")
	require.NoError(t, err)
	assert.Equal(t, "USD", o.PayinCurrency())

	_, err = svc.Find(context.Background(), "did:dht:a", "nope")
	assert.Error(t, err)
}
