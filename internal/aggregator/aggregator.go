/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package aggregator

import (
	"context"
	"sort"
	"strings"

	"wallet-exchange-go/internal/exchange"
	"wallet-exchange-go/internal/fees"
	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/pfi"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const unknownAddress = "Unknown"

// OfferingSource supplies offerings used to fill in unquoted exchanges
type OfferingSource interface {
	GetOfferings(ctx context.Context, providerDID string) ([]models.Offering, error)
}

// Aggregator merges the exchange threads of every provider into one list
type Aggregator struct {
	transport pfi.Transport
	offerings OfferingSource
}

func New(transport pfi.Transport, offerings OfferingSource) *Aggregator {
	return &Aggregator{transport: transport, offerings: offerings}
}

// ListAllExchanges fetches the holder's threads from each provider
// concurrently and returns them most recent first. A provider that fails is
// logged and left out; only cancellation of ctx is returned as an error.
func (a *Aggregator) ListAllExchanges(ctx context.Context, signer identity.Signer, providers []models.LiquidityProvider) ([]models.ExchangeSummary, error) {
	perProvider := make([][]models.ExchangeSummary, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			summaries, err := a.listProvider(gctx, signer, p)
			if err != nil {
				zap.L().Warn("Failed to fetch exchanges",
					zap.String("provider", p.Name),
					zap.String("did", p.DID),
					zap.Error(err))
				return nil
			}
			perProvider[i] = summaries
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []models.ExchangeSummary
	for _, s := range perProvider {
		merged = append(merged, s...)
	}

	for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
		merged[i], merged[j] = merged[j], merged[i]
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	metrics.AggregatedExchanges.Set(float64(len(merged)))
	return merged, nil
}

func (a *Aggregator) listProvider(ctx context.Context, signer identity.Signer, p models.LiquidityProvider) ([]models.ExchangeSummary, error) {
	threads, err := a.transport.GetExchanges(ctx, p.DID, signer)
	if err != nil {
		return nil, err
	}

	var offerings []models.Offering
	if a.offerings != nil {
		if offerings, err = a.offerings.GetOfferings(ctx, p.DID); err != nil {
			zap.L().Debug("No offerings for exchange summaries", zap.String("provider", p.Name), zap.Error(err))
		}
	}

	summaries := make([]models.ExchangeSummary, 0, len(threads))
	for _, thread := range threads {
		s, err := Summarize(thread, offerings)
		if err != nil {
			zap.L().Warn("Skipping malformed exchange thread",
				zap.String("provider", p.Name),
				zap.String("exchange_id", thread.ExchangeID()),
				zap.Error(err))
			continue
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

// Summarize normalizes one thread. The thread must replay as a valid
// exchange; one that skips a step or regresses returns ErrProtocolViolation.
// offerings is used for currencies and an estimated payout when the thread
// has no quote yet.
func Summarize(thread models.Thread, offerings []models.Offering) (*models.ExchangeSummary, error) {
	ex, err := models.ExchangeFromThread(thread)
	if err != nil {
		return nil, err
	}
	rfq := thread.First(models.KindRFQ)
	quote := thread.Last(models.KindQuote)
	latest := thread.Latest()

	s := &models.ExchangeSummary{
		ID:             ex.ExchangeID,
		ProviderDID:    ex.ProviderDID,
		PayinAmount:    ex.PayinAmount,
		CreatedAt:      ex.CreatedAt,
		ExpirationTime: ex.ExpirationTime,
		From:           rfq.Metadata.From,
		To:             unknownAddress,
	}

	if latest.Kind() == models.KindClose {
		s.Status = string(exchange.ClassifyCloseOutcome(latest))
	} else {
		s.Status = string(latest.Kind())
	}

	if rfq.PrivateData != nil {
		s.To = DisplayAddress(rfq.PrivateData.Payout.PaymentDetails)
	}

	if quote != nil && quote.Quote != nil {
		s.PayinAmount = quote.Quote.Payin.Total()
		s.PayinCurrency = quote.Quote.Payin.CurrencyCode
		s.PayoutAmount = quote.Quote.Payout.Amount.String()
		s.PayoutCurrency = quote.Quote.Payout.CurrencyCode
		return s, nil
	}

	for _, o := range offerings {
		if o.Metadata.ID != ex.OfferingID {
			continue
		}
		s.PayinCurrency = o.PayinCurrency()
		s.PayoutCurrency = o.PayoutCurrency()
		if est, err := fees.ComputePayoutAmount(ex.PayinAmount.String(), o); err == nil {
			s.PayoutAmount = est
		}
		break
	}
	return s, nil
}

// DisplayAddress picks the counterparty label from payout payment details:
// an address, else an account number with its bank, else a phone number
// with its network, else "Unknown".
func DisplayAddress(details map[string]any) string {
	str := func(key string) string {
		v, _ := details[key].(string)
		return strings.TrimSpace(v)
	}

	if addr := str("address"); addr != "" {
		return addr
	}
	if acct := str("accountNumber"); acct != "" {
		if bank := str("bankName"); bank != "" {
			return acct + ", " + bank
		}
		return acct
	}
	if phone := str("phoneNumber"); phone != "" {
		if network := str("networkProvider"); network != "" {
			return phone + ", " + network
		}
		return phone
	}
	return unknownAddress
}
