package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/pfi/pfitest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	providerA = models.LiquidityProvider{Name: "AquaFinance Capital", DID: "did:dht:aqua"}
	providerB = models.LiquidityProvider{Name: "Flowback Financial", DID: "did:dht:flow"}
)

func rfq(holder identity.Signer, provider string, id string, created time.Time, payout map[string]any) models.Message {
	return models.Message{
		Metadata: models.MessageMetadata{
			From: holder.DID(), To: provider, Kind: models.KindRFQ,
			ID: id, ExchangeID: id, Protocol: models.ProtocolVersion, CreatedAt: created,
		},
		RFQ: &models.RFQData{
			OfferingID: "offering_" + provider,
			Payin:      models.SelectedPayinMethod{Kind: "USD_BANK_TRANSFER", Amount: decimal.RequireFromString("100")},
			Payout:     models.SelectedPayoutMethod{Kind: "EUR_BANK_TRANSFER"},
		},
		PrivateData: &models.RFQPrivateData{Payout: models.PaymentDetails{PaymentDetails: payout}},
	}
}

func offeringFor(provider string) models.Offering {
	return models.Offering{
		Metadata: models.OfferingMetadata{From: provider, Kind: "offering", ID: "offering_" + provider},
		Data: models.OfferingData{
			PayoutUnitsPerPayinUnit: decimal.RequireFromString("0.9"),
			Payin:                   models.PayinDetails{CurrencyCode: "USD"},
			Payout:                  models.PayoutDetails{CurrencyCode: "EUR"},
		},
	}
}

func newHolder(t *testing.T) *identity.BearerDID {
	t.Helper()
	h, err := identity.NewBearerDID()
	require.NoError(t, err)
	return h
}

func TestListAllExchanges(t *testing.T) {
	holder := newHolder(t)
	p := pfitest.New()
	p.SetOfferings(providerA.DID, offeringFor(providerA.DID))
	p.SetOfferings(providerB.DID, offeringFor(providerB.DID))

	base := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	quoted := rfq(holder, providerA.DID, "rfq_a1", base, map[string]any{"accountNumber": "0123", "bankName": "Zenith"})
	p.Append(quoted)
	p.Append(pfitest.Quote(quoted, "USD", "EUR", "100", "1.5", "90"))

	closed := rfq(holder, providerA.DID, "rfq_a2", base.Add(2*time.Hour), map[string]any{"address": "0xabc"})
	p.Append(closed)
	p.Append(pfitest.Close(closed, "Quote expired"))

	pending := rfq(holder, providerB.DID, "rfq_b1", base.Add(time.Hour), map[string]any{"phoneNumber": "+254700", "networkProvider": "Safaricom"})
	p.Append(pending)

	agg := New(p, p)
	got, err := agg.ListAllExchanges(context.Background(), holder, []models.LiquidityProvider{providerA, providerB})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"rfq_a2", "rfq_b1", "rfq_a1"}, []string{got[0].ID, got[1].ID, got[2].ID})

	assert.Equal(t, "expired", got[0].Status)
	assert.Equal(t, "0xabc", got[0].To)

	assert.Equal(t, "rfq", got[1].Status)
	assert.Equal(t, "+254700, Safaricom", got[1].To)
	assert.Equal(t, "90.00", got[1].PayoutAmount, "estimated from offering")
	assert.Equal(t, "USD", got[1].PayinCurrency)

	assert.Equal(t, "quote", got[2].Status)
	assert.True(t, got[2].PayinAmount.Equal(decimal.RequireFromString("101.5")), "payin includes fee")
	assert.Equal(t, "90", got[2].PayoutAmount)
	assert.Equal(t, "0123, Zenith", got[2].To)
	assert.NotNil(t, got[2].ExpirationTime)
}

func TestListAllExchangesIsolatesFailures(t *testing.T) {
	holder := newHolder(t)
	p := pfitest.New()
	p.Append(rfq(holder, providerB.DID, "rfq_b1", time.Now(), nil))
	p.Fail(providerA.DID, errors.New("service unavailable"))

	got, err := New(p, nil).ListAllExchanges(context.Background(), holder, []models.LiquidityProvider{providerA, providerB})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rfq_b1", got[0].ID)
	assert.Equal(t, "Unknown", got[0].To)
}

func TestListAllExchangesOrderTies(t *testing.T) {
	holder := newHolder(t)
	p := pfitest.New()
	same := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	p.Append(rfq(holder, providerA.DID, "first", same, nil))
	p.Append(rfq(holder, providerA.DID, "second", same, nil))

	got, err := New(p, nil).ListAllExchanges(context.Background(), holder, []models.LiquidityProvider{providerA})
	require.NoError(t, err)
	assert.Equal(t, "second", got[0].ID, "ties keep reverse arrival order")
}

func TestSummarizeRequiresRFQ(t *testing.T) {
	_, err := Summarize(models.Thread{{Metadata: models.MessageMetadata{Kind: models.KindOrder}}}, nil)
	assert.ErrorIs(t, err, models.ErrProtocolViolation)
}

func TestSummarizeRejectsSkippedSteps(t *testing.T) {
	holder := newHolder(t)
	start := rfq(holder, providerA.DID, "rfq_1", time.Now(), nil)
	thread := models.Thread{start, pfitest.OrderStatus(start, "PAYOUT_SETTLED"), pfitest.Close(start, "order complete")}

	_, err := Summarize(thread, nil)
	assert.ErrorIs(t, err, models.ErrProtocolViolation)
}

func TestListAllExchangesSkipsInvalidThreads(t *testing.T) {
	holder := newHolder(t)
	p := pfitest.New()
	base := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	bad := rfq(holder, providerA.DID, "rfq_bad", base, nil)
	p.Append(bad)
	p.Append(pfitest.OrderStatus(bad, "PAYOUT_SETTLED"))
	p.Append(pfitest.Close(bad, "order complete"))

	good := rfq(holder, providerA.DID, "rfq_good", base.Add(time.Minute), nil)
	p.Append(good)
	p.Append(pfitest.Quote(good, "USD", "EUR", "100", "", "90"))
	p.Append(pfitest.Close(good, "Quote expired"))

	got, err := New(p, nil).ListAllExchanges(context.Background(), holder, []models.LiquidityProvider{providerA})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rfq_good", got[0].ID)
	assert.Equal(t, "expired", got[0].Status)
}

func TestDisplayAddress(t *testing.T) {
	tests := []struct {
		name    string
		details map[string]any
		want    string
	}{
		{"address wins", map[string]any{"address": "0xabc", "accountNumber": "1"}, "0xabc"},
		{"account with bank", map[string]any{"accountNumber": "1", "bankName": "B"}, "1, B"},
		{"account alone", map[string]any{"accountNumber": "1"}, "1"},
		{"bank without account", map[string]any{"bankName": "B", "phoneNumber": "+1"}, "+1"},
		{"phone with network", map[string]any{"phoneNumber": "+1", "networkProvider": "N"}, "+1, N"},
		{"nothing", map[string]any{"networkProvider": "N"}, "Unknown"},
		{"nil", nil, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayAddress(tt.details))
		})
	}
}

func TestPollerRunsAndStops(t *testing.T) {
	holder := newHolder(t)
	p := pfitest.New()
	p.Append(rfq(holder, providerA.DID, "rfq_a1", time.Now(), nil))

	var (
		mu     sync.Mutex
		passes int
	)
	sink := func(s []models.ExchangeSummary) {
		mu.Lock()
		passes++
		mu.Unlock()
	}

	poller := New(p, nil).StartPolling(context.Background(), holder, []models.LiquidityProvider{providerA}, 10*time.Millisecond, sink)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return passes >= 2
	}, time.Second, 5*time.Millisecond)

	poller.Stop()
	poller.Stop()

	mu.Lock()
	after := passes
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, after, passes, "no passes after Stop")
	mu.Unlock()
	assert.Len(t, poller.Latest(), 1)
}

func TestPollerStopsWithContext(t *testing.T) {
	holder := newHolder(t)
	ctx, cancel := context.WithCancel(context.Background())

	poller := New(pfitest.New(), nil).StartPolling(ctx, holder, nil, time.Hour, nil)
	cancel()

	select {
	case <-poller.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on context cancel")
	}
}
