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

	"wallet-exchange-go/internal/store"
)

var (
	ErrInvalidRecord = errors.New("invalid transaction record")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// LedgerService records the holder's transaction history
type LedgerService struct {
	db  store.LedgerStore
	now func() time.Time
}

func NewLedgerService(db store.LedgerStore) *LedgerService {
	return &LedgerService{
		db:  db,
		now: time.Now,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.db.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
