package pfi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerDID = "did:dht:pfi"

type staticResolver map[string]string

func (r staticResolver) Endpoint(did string) (string, error) {
	if ep, ok := r[did]; ok {
		return ep, nil
	}
	return "", fmt.Errorf("unknown provider %s", did)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(staticResolver{providerDID: srv.URL}, models.PFIConfig{RequestTimeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func offering(id string, rate string) models.Offering {
	return models.Offering{
		Metadata: models.OfferingMetadata{From: providerDID, Kind: "offering", ID: id},
		Data: models.OfferingData{
			PayoutUnitsPerPayinUnit: decimal.RequireFromString(rate),
			Payin:                   models.PayinDetails{CurrencyCode: "USD"},
			Payout:                  models.PayoutDetails{CurrencyCode: "EUR"},
		},
	}
}

func TestGetOfferingsDropsInvalid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/offerings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []models.Offering{offering("o1", "0.9"), offering("o2", "0")},
		})
	}))

	got, err := c.GetOfferings(context.Background(), providerDID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].Metadata.ID)
}

func TestGetExchangesSendsBearerToken(t *testing.T) {
	holder, err := identity.NewBearerDID()
	require.NoError(t, err)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		iss, err := identity.VerifyBearerToken(token, providerDID)
		if err != nil || iss != holder.DID() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": [][]models.Message{{
			{Metadata: models.MessageMetadata{Kind: models.KindOrder, ID: "order_1", ExchangeID: "rfq_1"}},
		}}})
	}))

	threads, err := c.GetExchanges(context.Background(), providerDID, holder)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, models.KindOrder, threads[0][0].Kind())
}

func TestGetExchangesSkipsUndecodableThreads(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			[{"metadata":{"kind":"order","id":"order_1","exchangeId":"rfq_1"},"data":{}}],
			[{"metadata":{"kind":"refund","id":"refund_1","exchangeId":"rfq_2"},"data":{}}],
			"not a thread"
		]}`))
	}))

	threads, err := c.GetExchanges(context.Background(), providerDID, nil)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "rfq_1", threads[0][0].Metadata.ExchangeID)
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOfferings(ctx, providerDID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestNon2xxIsTransportError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"offering not found"}]}`))
	}))

	err := c.CreateExchange(context.Background(), models.Message{
		Metadata: models.MessageMetadata{Kind: models.KindRFQ, To: providerDID, ID: "rfq_1"},
		RFQ:      &models.RFQData{OfferingID: "missing"},
	})

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Contains(t, te.Error(), "offering not found")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestUnknownProvider(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.GetOfferings(context.Background(), "did:dht:nobody")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 8; i++ {
		_, err := c.GetOfferings(context.Background(), providerDID)
		require.ErrorIs(t, err, ErrTransport)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits), "breaker should stop requests after 5 failures")
}

func TestSubmitRejectsWrongKind(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	err := c.SubmitOrder(context.Background(), models.Message{Metadata: models.MessageMetadata{Kind: models.KindClose}})
	assert.ErrorIs(t, err, models.ErrProtocolViolation)
}

func TestSubmitOrderPath(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusAccepted)
	}))

	err := c.SubmitOrder(context.Background(), models.Message{
		Metadata: models.MessageMetadata{Kind: models.KindOrder, To: providerDID, ExchangeID: "rfq_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/exchanges/rfq_1", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}
