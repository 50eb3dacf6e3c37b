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

package store

import (
	"context"
	"errors"
	"time"

	"wallet-exchange-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrNotFound               = errors.New("not found")
)

// UserStore holds the user documents that own records and rating history.
type UserStore interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)
	SetUserDID(ctx context.Context, userId, portableDID string) error
	// AddUserCredential stores a credential JWT on the user; adding one
	// already held is a no-op.
	AddUserCredential(ctx context.Context, userId, credential string) error
}

// RecordStore is the per-user transaction history. References are unique
// per user; appending a known reference returns ErrDuplicateTransaction.
type RecordStore interface {
	AppendRecord(ctx context.Context, userId string, record models.TransactionRecord) error
	UpdateRecordStatus(ctx context.Context, userId, reference string, status models.TxStatus, at time.Time) error
	GetRecord(ctx context.Context, userId, reference string) (*models.TransactionRecord, error)
	GetRecords(ctx context.Context, userId string) ([]models.TransactionRecord, error)
}

// ReputationUpdate mutates a reputation inside an atomic read-modify-write.
// rep is nil when the provider has no reputation yet.
type ReputationUpdate func(rep *models.ProviderReputation) (*models.ProviderReputation, error)

// ReputationStore holds provider reputations and the per-user rating history.
type ReputationStore interface {
	AppendUserRating(ctx context.Context, userId string, rating models.UserRating) error
	GetUserRatings(ctx context.Context, userId string) ([]models.UserRating, error)
	// DeleteUserRating removes a history entry written by AppendUserRating
	DeleteUserRating(ctx context.Context, userId string, rating models.UserRating) error
	GetReputation(ctx context.Context, providerDID string) (*models.ProviderReputation, error)
	ListReputations(ctx context.Context) ([]models.ProviderReputation, error)
	UpdateReputation(ctx context.Context, providerDID string, update ReputationUpdate) (*models.ProviderReputation, error)
}

// LedgerStore is what a records backend (SQLite, Formance, ...) must satisfy.
type LedgerStore interface {
	UserStore
	RecordStore
	Close()
}

// Store is the full wallet backend.
type Store interface {
	LedgerStore
	ReputationStore
}
