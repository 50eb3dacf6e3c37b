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

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRecord validates and appends a record, filling in the reference
// and timestamp when they are empty. The stored record is returned.
func (s *LedgerService) CreateRecord(ctx context.Context, userId string, record models.TransactionRecord) (*models.TransactionRecord, error) {
	if record.Status == "" {
		record.Status = models.TxProcessing
	}
	if err := validateRecord(record); err != nil {
		zap.L().Error("Invalid transaction record",
			zap.String("user_id", userId),
			zap.String("reference", record.Reference),
			zap.Error(err))
		return nil, err
	}
	if record.Reference == "" {
		record.Reference = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now().UTC()
	}

	if err := s.db.AppendRecord(ctx, userId, record); err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Duplicate transaction record",
				zap.String("user_id", userId),
				zap.String("reference", record.Reference))
		}
		return nil, err
	}
	return &record, nil
}

// UpdateStatus sets the status of an existing record. Repeating the same
// update is harmless.
func (s *LedgerService) UpdateStatus(ctx context.Context, userId, reference string, status models.TxStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, status)
	}
	if err := s.db.UpdateRecordStatus(ctx, userId, reference, status, s.now().UTC()); err != nil {
		zap.L().Error("Failed to update record status",
			zap.String("user_id", userId),
			zap.String("reference", reference),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}
	return nil
}

// History returns the user's records, newest first
func (s *LedgerService) History(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	records, err := s.db.GetRecords(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to load history: %w", err)
	}
	return records, nil
}

func validateRecord(r models.TransactionRecord) error {
	switch {
	case !r.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.Type)
	case !r.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidRecord, r.Amount)
	case r.CurrencyCode == "":
		return fmt.Errorf("%w: currency code is required", ErrInvalidRecord)
	}
	return nil
}
