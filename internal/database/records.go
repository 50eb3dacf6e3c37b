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
	"errors"
	"fmt"
	"time"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) AppendRecord(ctx context.Context, userId string, record models.TransactionRecord) error {
	if err := s.userExists(ctx, s.db, userId); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, queryInsertRecord,
		userId,
		record.Reference,
		record.From,
		record.To,
		string(record.Type),
		record.Amount.String(),
		record.CurrencyCode,
		record.Timestamp.UTC(),
		string(record.Status),
		record.Narration,
		record.LiquidityProvider,
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, record.Reference)
		}
		zap.L().Error("Failed to insert transaction record",
			zap.String("user_id", userId),
			zap.String("reference", record.Reference),
			zap.Error(err))
		return fmt.Errorf("unable to insert transaction record: %w", err)
	}

	zap.L().Info("Transaction record appended",
		zap.String("user_id", userId),
		zap.String("reference", record.Reference),
		zap.String("type", string(record.Type)),
		zap.String("amount", record.Amount.String()),
		zap.String("currency", record.CurrencyCode),
		zap.String("status", string(record.Status)))
	return nil
}

func (s *Service) UpdateRecordStatus(ctx context.Context, userId, reference string, status models.TxStatus, at time.Time) error {
	if err := s.userExists(ctx, s.db, userId); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, queryUpdateRecordStatus, string(status), at.UTC(), userId, reference)
	if err != nil {
		return fmt.Errorf("unable to update record status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: record %s", store.ErrNotFound, reference)
	}

	zap.L().Info("Transaction record status updated",
		zap.String("user_id", userId),
		zap.String("reference", reference),
		zap.String("status", string(status)))
	return nil
}

func (s *Service) GetRecord(ctx context.Context, userId, reference string) (*models.TransactionRecord, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx, queryGetRecord, userId, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: record %s", store.ErrNotFound, reference)
		}
		return nil, fmt.Errorf("unable to query record: %w", err)
	}
	return record, nil
}

// GetRecords returns the user's history, newest first
func (s *Service) GetRecords(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	if err := s.userExists(ctx, s.db, userId); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryGetRecords, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query records: %w", err)
	}
	defer closeRows(rows)

	records := []models.TransactionRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan record row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	zap.L().Debug("Retrieved transaction records", zap.String("user_id", userId), zap.Int("count", len(records)))
	return records, nil
}

func scanRecord(row interface{ Scan(...any) error }) (*models.TransactionRecord, error) {
	var (
		record    models.TransactionRecord
		txType    string
		amount    string
		status    string
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&record.Reference,
		&record.From,
		&record.To,
		&txType,
		&amount,
		&record.CurrencyCode,
		&record.Timestamp,
		&status,
		&record.Narration,
		&record.LiquidityProvider,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	record.Type = models.TxType(txType)
	record.Status = models.TxStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		record.UpdatedAt = &t
	}
	return &record, nil
}
