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

package offerings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"wallet-exchange-go/internal/cache"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// providerKeyPrefix marks cache keys that are provider DIDs
const providerKeyPrefix = "did:"

// Fetcher is the part of the transport the cache needs
type Fetcher interface {
	GetOfferings(ctx context.Context, providerDID string) ([]models.Offering, error)
}

// Service serves offerings cache-first, keyed by provider DID
type Service struct {
	cache   cache.KeyValue
	fetcher Fetcher
}

func NewService(kv cache.KeyValue, fetcher Fetcher) *Service {
	return &Service{cache: kv, fetcher: fetcher}
}

// GetOfferings returns the cached offerings of a provider, fetching and
// caching them on a miss. A failed cache read or write is logged and the
// call falls through to the transport result.
func (s *Service) GetOfferings(ctx context.Context, providerDID string) ([]models.Offering, error) {
	raw, ok, err := s.cache.Get(providerDID)
	if err != nil {
		zap.L().Warn("Offering cache read failed", zap.String("provider", providerDID), zap.Error(err))
	}
	if ok {
		var offerings []models.Offering
		if err := json.Unmarshal(raw, &offerings); err == nil {
			metrics.OfferingCache.WithLabelValues("hit").Inc()
			return offerings, nil
		}
		zap.L().Warn("Discarding corrupt cache entry", zap.String("provider", providerDID))
	}

	metrics.OfferingCache.WithLabelValues("miss").Inc()
	return s.fetch(ctx, providerDID)
}

func (s *Service) fetch(ctx context.Context, providerDID string) ([]models.Offering, error) {
	offerings, err := s.fetcher.GetOfferings(ctx, providerDID)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch offerings for %s: %w", providerDID, err)
	}

	raw, err := json.Marshal(offerings)
	if err != nil {
		zap.L().Warn("Unable to encode offerings for cache", zap.String("provider", providerDID), zap.Error(err))
		return offerings, nil
	}
	if err := s.cache.Set(providerDID, raw); err != nil {
		zap.L().Warn("Offering cache write failed", zap.String("provider", providerDID), zap.Error(err))
	}
	return offerings, nil
}

// Invalidate drops the cached offerings of one provider
func (s *Service) Invalidate(providerDID string) error {
	return s.cache.Delete(providerDID)
}

// InvalidateAll drops every cached provider entry
func (s *Service) InvalidateAll() error {
	keys, err := s.cache.Keys(providerKeyPrefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := s.cache.Delete(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshAll refetches and recaches every provider. Providers are
// independent: a failure is logged and the rest carry on. The returned
// error joins the individual failures.
func (s *Service) RefreshAll(ctx context.Context, providers []models.LiquidityProvider) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		p := p
		g.Go(func() error {
			if _, err := s.fetch(ctx, p.DID); err != nil {
				zap.L().Warn("Offering refresh failed", zap.String("provider", p.Name), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// GetAllOfferings collects the offerings of every provider. Providers that
// fail are skipped.
func (s *Service) GetAllOfferings(ctx context.Context, providers []models.LiquidityProvider) []models.Offering {
	results := make([][]models.Offering, len(providers))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			offerings, err := s.GetOfferings(ctx, p.DID)
			if err != nil {
				zap.L().Warn("Skipping provider offerings", zap.String("provider", p.Name), zap.Error(err))
				return nil
			}
			results[i] = offerings
			return nil
		})
	}
	_ = g.Wait()

	var all []models.Offering
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// Find returns the offering with the given id from a provider
func (s *Service) Find(ctx context.Context, providerDID, offeringID string) (*models.Offering, error) {
	offerings, err := s.GetOfferings(ctx, providerDID)
	if err != nil {
		return nil, err
	}
	for i := range offerings {
		if offerings[i].Metadata.ID == offeringID {
			return &offerings[i], nil
		}
	}
	return nil, fmt.Errorf("offering %s not found for %s", offeringID, providerDID)
}

// MatchingPairs filters offerings by payin and payout currency. An empty
// currency matches anything.
func MatchingPairs(offerings []models.Offering, payin, payout string) []models.Offering {
	var out []models.Offering
	for _, o := range offerings {
		if payin != "" && o.PayinCurrency() != payin {
			continue
		}
		if payout != "" && o.PayoutCurrency() != payout {
			continue
		}
		out = append(out, o)
	}
	return out
}
