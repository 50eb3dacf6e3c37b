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

package formance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

func userAddress(userId string) string {
	return "users:" + accountSegment(userId)
}

// ---------- User CRUD ----------

func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	// Check if a user with this email already exists -- reject to prevent duplicates.
	existing, err := s.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		zap.L().Info("User with this email already exists in Formance",
			zap.String("existing_id", existing.Id),
			zap.String("email", email))
		return nil, fmt.Errorf("user with email %s already exists", email)
	}

	addr := userAddress(userId)
	zap.L().Info("Creating user in Formance", zap.String("address", addr), zap.String("email", email))

	_, err = s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:  s.ledger,
		Address: addr,
		RequestBody: map[string]string{
			"entity_type": "end_user",
			"active":      "true",
			"user_id":     userId,
			"name":        name,
			"email":       email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user account: %w", err)
	}

	return s.GetUserById(ctx, userId)
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	addr := userAddress(userId)

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: addr,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	acct := resp.V2AccountResponse.Data
	if acct.Metadata["email"] == "" {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	return accountToUser(&acct), nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	accounts, err := s.listAccounts(ctx, map[string]any{
		"$match": map[string]any{
			"metadata[email]": email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search user by email: %w", err)
	}

	for i := range accounts {
		if isUserAddress(accounts[i].Address) {
			return accountToUser(&accounts[i]), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	accounts, err := s.listAccounts(ctx, map[string]any{
		"$match": map[string]any{
			"metadata[entity_type]": "end_user",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []models.User
	for i := range accounts {
		if isUserAddress(accounts[i].Address) {
			users = append(users, *accountToUser(&accounts[i]))
		}
	}
	return users, nil
}

// SetUserDID stores the exported portable DID on the user account.
func (s *Service) SetUserDID(ctx context.Context, userId, portableDID string) error {
	if _, err := s.GetUserById(ctx, userId); err != nil {
		return err
	}
	_, err := s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      s.ledger,
		Address:     userAddress(userId),
		RequestBody: map[string]string{"did": portableDID},
	})
	if err != nil {
		return fmt.Errorf("failed to store user DID: %w", err)
	}
	return nil
}

// AddUserCredential appends a credential JWT to the user's "credentials"
// metadata, stored as a JSON array.
func (s *Service) AddUserCredential(ctx context.Context, userId, credential string) error {
	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return err
	}
	for _, c := range user.Credentials {
		if c == credential {
			return nil
		}
	}

	encoded, err := json.Marshal(append(user.Credentials, credential))
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	_, err = s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      s.ledger,
		Address:     userAddress(userId),
		RequestBody: map[string]string{"credentials": string(encoded)},
	})
	if err != nil {
		return fmt.Errorf("failed to store user credential: %w", err)
	}
	return nil
}

// ---------- helpers ----------

// isUserAddress matches top-level user accounts (users:{id}, not users:{id}:records:{ref}).
func isUserAddress(addr string) bool {
	parts := strings.Split(addr, ":")
	return len(parts) == 2 && parts[0] == "users"
}

func accountToUser(acct *shared.V2Account) *models.User {
	meta := acct.Metadata
	userId := meta["user_id"]
	if userId == "" {
		userId = strings.TrimPrefix(acct.Address, "users:")
	}

	now := time.Now()
	if t := acct.FirstUsage; t != nil {
		now = *t
	}

	var credentials []string
	if raw := meta["credentials"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
			zap.L().Warn("Ignoring malformed credentials metadata",
				zap.String("address", acct.Address), zap.Error(err))
		}
	}

	return &models.User{
		Id:          userId,
		Name:        meta["name"],
		Email:       meta["email"],
		DID:         meta["did"],
		Credentials: credentials,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// accountSegment maps an identifier onto the characters Formance allows in
// an address segment.
func accountSegment(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
