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

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"go.uber.org/zap"
)

const maxRatingAttempts = 5

// RatingService maintains provider reputations from user ratings
type RatingService struct {
	db  store.ReputationStore
	now func() time.Time
}

func NewRatingService(db store.ReputationStore) *RatingService {
	return &RatingService{
		db:  db,
		now: time.Now,
	}
}

// SubmitRating records the rating in the user's history and folds it into
// the provider's reputation. Lost optimistic-lock races are retried against
// a fresh read. When the reputation cannot be updated the history entry is
// removed again.
func (s *RatingService) SubmitRating(ctx context.Context, userId, providerDID string, rating int) (*models.ProviderReputation, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidRating, rating)
	}
	if providerDID == "" {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidRating)
	}

	now := s.now().UTC()
	entry := models.UserRating{
		ProviderDID: providerDID,
		Rating:      rating,
		Timestamp:   now,
	}
	if err := s.db.AppendUserRating(ctx, userId, entry); err != nil {
		return nil, fmt.Errorf("unable to record user rating: %w", err)
	}

	update := func(rep *models.ProviderReputation) (*models.ProviderReputation, error) {
		if rep == nil {
			rep = &models.ProviderReputation{
				ProviderDID: providerDID,
				CreatedAt:   now,
			}
		}
		rep.Apply(rating)
		return rep, nil
	}

	for attempt := 1; ; attempt++ {
		rep, err := s.db.UpdateReputation(ctx, providerDID, update)
		if err == nil {
			zap.L().Info("Provider rated",
				zap.String("user_id", userId),
				zap.String("provider", providerDID),
				zap.Int("rating", rating),
				zap.String("average", rep.AverageRating.String()))
			return rep, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) || attempt >= maxRatingAttempts {
			s.discardRating(ctx, userId, entry)
			return nil, fmt.Errorf("unable to update reputation: %w", err)
		}
		zap.L().Debug("Retrying reputation update",
			zap.String("provider", providerDID),
			zap.Int("attempt", attempt))
	}
}

// discardRating removes the history entry of a rating that never reached
// the reputation, so the user can rate the provider again.
func (s *RatingService) discardRating(ctx context.Context, userId string, entry models.UserRating) {
	if err := s.db.DeleteUserRating(context.WithoutCancel(ctx), userId, entry); err != nil {
		zap.L().Error("Failed to remove rating history after failed update",
			zap.String("user_id", userId),
			zap.String("provider", entry.ProviderDID),
			zap.Error(err))
	}
}

// HasRated reports whether the user already rated the provider
func (s *RatingService) HasRated(ctx context.Context, userId, providerDID string) (bool, error) {
	ratings, err := s.db.GetUserRatings(ctx, userId)
	if err != nil {
		return false, err
	}
	for _, r := range ratings {
		if r.ProviderDID == providerDID {
			return true, nil
		}
	}
	return false, nil
}

// Reputation returns the provider's reputation, or an empty one if nobody
// has rated it yet.
func (s *RatingService) Reputation(ctx context.Context, providerDID string) (*models.ProviderReputation, error) {
	rep, err := s.db.GetReputation(ctx, providerDID)
	if errors.Is(err, store.ErrNotFound) {
		return &models.ProviderReputation{ProviderDID: providerDID, Ratings: []int{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}
