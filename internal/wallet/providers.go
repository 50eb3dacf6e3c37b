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

package wallet

import (
	"context"
	"fmt"

	"wallet-exchange-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ListProviders joins every directory entry with its reputation and
// offerings. A provider whose offerings cannot be fetched is listed
// without them.
func (s *Service) ListProviders(ctx context.Context) ([]models.ProviderListing, error) {
	providers := s.directory.Providers()
	listings := make([]models.ProviderListing, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			listing := models.ProviderListing{Provider: p, Offerings: []models.Offering{}}

			rep, err := s.ratings.Reputation(gctx, p.DID)
			if err != nil {
				return fmt.Errorf("unable to load reputation for %s: %w", p.Name, err)
			}
			listing.Rating = rep.AverageRating
			listing.TotalRatings = rep.TotalRatings

			offerings, err := s.offerings.GetOfferings(gctx, p.DID)
			if err != nil {
				zap.L().Warn("Listing provider without offerings", zap.String("provider", p.Name), zap.Error(err))
			} else if offerings != nil {
				listing.Offerings = offerings
			}

			listings[i] = listing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}

// FindProvider returns the first directory provider listing the pair
func (s *Service) FindProvider(payin, payout string) (*models.LiquidityProvider, error) {
	for _, p := range s.directory.Providers() {
		if p.Supports(payin, payout) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrNoProvider, payin, payout)
}

// RateProvider records a user's rating of a known provider. Each user rates
// a provider once.
func (s *Service) RateProvider(ctx context.Context, userId, providerDID string, rating int) (*models.ProviderReputation, error) {
	known := false
	for _, p := range s.directory.Providers() {
		if p.DID == providerDID {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerDID)
	}

	rated, err := s.ratings.HasRated(ctx, userId, providerDID)
	if err != nil {
		return nil, err
	}
	if rated {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRated, providerDID)
	}
	return s.ratings.SubmitRating(ctx, userId, providerDID, rating)
}
