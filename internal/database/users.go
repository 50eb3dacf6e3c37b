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

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"go.uber.org/zap"
)

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	var credentials string
	if err := row.Scan(&user.Id, &user.Name, &user.Email, &user.DID, &credentials, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(credentials), &user.Credentials); err != nil {
		return nil, fmt.Errorf("unable to decode credentials: %w", err)
	}
	return &user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying active users")

	rows, err := s.db.QueryContext(ctx, queryGetActiveUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}

	zap.L().Debug("Retrieved user by ID", zap.String("user_id", userId), zap.String("name", user.Name))
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	zap.L().Debug("Querying user by email", zap.String("email", email))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		zap.L().Error("Failed to query user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}

	zap.L().Debug("Retrieved user by email", zap.String("email", email), zap.String("name", user.Name))
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", userId), zap.String("name", name), zap.String("email", email))

	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, email)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("email", email))
	return s.GetUserByEmail(ctx, email)
}

// SetUserDID stores the exported portable DID of the user's wallet identity
func (s *Service) SetUserDID(ctx context.Context, userId, portableDID string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateUserDID, portableDID, userId)
	if err != nil {
		return fmt.Errorf("unable to update user DID: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	zap.L().Debug("User DID stored", zap.String("user_id", userId))
	return nil
}

// AddUserCredential appends a credential JWT to the user's stored set
func (s *Service) AddUserCredential(ctx context.Context, userId, credential string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to rollback transaction", zap.Error(err))
		}
	}()

	var raw string
	if err := tx.QueryRowContext(ctx, queryGetUserCredentials, userId).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		return fmt.Errorf("unable to read credentials: %w", err)
	}
	var credentials []string
	if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
		return fmt.Errorf("unable to decode credentials: %w", err)
	}
	for _, c := range credentials {
		if c == credential {
			return nil
		}
	}

	encoded, err := json.Marshal(append(credentials, credential))
	if err != nil {
		return fmt.Errorf("unable to encode credentials: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryUpdateUserCredentials, string(encoded), userId); err != nil {
		return fmt.Errorf("unable to update credentials: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit credentials: %w", err)
	}

	zap.L().Info("Credential stored", zap.String("user_id", userId), zap.Int("count", len(credentials)+1))
	return nil
}

func (s *Service) userExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, userId string) error {
	var one int
	err := q.QueryRowContext(ctx, queryUserExists, userId).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return fmt.Errorf("unable to look up user: %w", err)
	}
	return nil
}
