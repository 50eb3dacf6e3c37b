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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) AppendUserRating(ctx context.Context, userId string, rating models.UserRating) error {
	if err := s.userExists(ctx, s.db, userId); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, queryInsertUserRating, userId, rating.ProviderDID, rating.Rating, rating.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert user rating: %w", err)
	}
	return nil
}

func (s *Service) DeleteUserRating(ctx context.Context, userId string, rating models.UserRating) error {
	result, err := s.db.ExecContext(ctx, queryDeleteUserRating, userId, rating.ProviderDID, rating.Rating, rating.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("unable to delete user rating: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: rating of %s by %s", store.ErrNotFound, rating.ProviderDID, userId)
	}
	return nil
}

func (s *Service) GetUserRatings(ctx context.Context, userId string) ([]models.UserRating, error) {
	if err := s.userExists(ctx, s.db, userId); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryGetUserRatings, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query user ratings: %w", err)
	}
	defer closeRows(rows)

	ratings := []models.UserRating{}
	for rows.Next() {
		var r models.UserRating
		if err := rows.Scan(&r.ProviderDID, &r.Rating, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("unable to scan user rating row: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rating rows: %w", err)
	}
	return ratings, nil
}

func (s *Service) GetReputation(ctx context.Context, providerDID string) (*models.ProviderReputation, error) {
	rep, err := scanReputation(s.db.QueryRowContext(ctx, queryGetReputation, providerDID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reputation %s", store.ErrNotFound, providerDID)
		}
		return nil, fmt.Errorf("unable to query reputation: %w", err)
	}
	return rep, nil
}

func (s *Service) ListReputations(ctx context.Context) ([]models.ProviderReputation, error) {
	rows, err := s.db.QueryContext(ctx, queryListReputations)
	if err != nil {
		return nil, fmt.Errorf("unable to query reputations: %w", err)
	}
	defer closeRows(rows)

	reps := []models.ProviderReputation{}
	for rows.Next() {
		rep, err := scanReputation(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan reputation row: %w", err)
		}
		reps = append(reps, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reputation rows: %w", err)
	}
	return reps, nil
}

// UpdateReputation runs update inside a transaction and writes the result
// back only if the row version is unchanged since it was read.
func (s *Service) UpdateReputation(ctx context.Context, providerDID string, update store.ReputationUpdate) (*models.ProviderReputation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	current, err := scanReputation(tx.QueryRowContext(ctx, queryGetReputation, providerDID))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unable to read reputation: %w", err)
		}
		current = nil
	}

	var readVersion int64
	var input *models.ProviderReputation
	if current != nil {
		readVersion = current.Version
		c := *current
		c.Ratings = append([]int(nil), current.Ratings...)
		input = &c
	}

	next, err := update(input)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("reputation update for %s returned nothing", providerDID)
	}

	ratings, err := json.Marshal(next.Ratings)
	if err != nil {
		return nil, fmt.Errorf("unable to encode ratings: %w", err)
	}
	now := time.Now().UTC()

	if current == nil {
		createdAt := next.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, queryInsertReputation,
			providerDID, string(ratings), next.TotalRatings, next.AverageRating.String(), createdAt.UTC(), now)
		if err != nil {
			if isConstraintError(err) {
				return nil, store.ErrConcurrentModification
			}
			return nil, fmt.Errorf("unable to insert reputation: %w", err)
		}
		next.Version = 1
		next.CreatedAt = createdAt
	} else {
		result, err := tx.ExecContext(ctx, queryUpdateReputation,
			string(ratings), next.TotalRatings, next.AverageRating.String(), now, providerDID, readVersion)
		if err != nil {
			return nil, fmt.Errorf("unable to update reputation: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("unable to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			zap.L().Warn("Concurrent reputation modification detected",
				zap.String("provider", providerDID),
				zap.Int64("expected_version", readVersion))
			return nil, store.ErrConcurrentModification
		}
		next.Version = readVersion + 1
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("unable to commit transaction: %w", err)
	}

	next.ProviderDID = providerDID
	next.UpdatedAt = now
	zap.L().Info("Provider reputation updated",
		zap.String("provider", providerDID),
		zap.Int("total_ratings", next.TotalRatings),
		zap.String("average_rating", next.AverageRating.String()),
		zap.Int64("version", next.Version))
	return next, nil
}

func scanReputation(row interface{ Scan(...any) error }) (*models.ProviderReputation, error) {
	var (
		rep     models.ProviderReputation
		ratings string
		average string
	)
	err := row.Scan(&rep.ProviderDID, &ratings, &rep.TotalRatings, &average, &rep.Version, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ratings), &rep.Ratings); err != nil {
		return nil, fmt.Errorf("invalid stored ratings: %w", err)
	}
	rep.AverageRating, err = decimal.NewFromString(average)
	if err != nil {
		return nil, fmt.Errorf("invalid stored average %q: %w", average, err)
	}
	return &rep, nil
}
