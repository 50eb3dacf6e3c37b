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
	"fmt"
	"sort"
	"time"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const recordEntityType = "transaction_record"

func recordAddress(userId, reference string) string {
	return userAddress(userId) + ":records:" + accountSegment(reference)
}

func (s *Service) AppendRecord(ctx context.Context, userId string, record models.TransactionRecord) error {
	if _, err := s.GetUserById(ctx, userId); err != nil {
		return err
	}

	addr := recordAddress(userId, record.Reference)
	existing, err := s.getAccountMetadata(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to check record: %w", err)
	}
	if existing["reference"] != "" {
		return fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, record.Reference)
	}

	_, err = s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      s.ledger,
		Address:     addr,
		RequestBody: recordToMetadata(userId, record),
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, record.Reference)
		}
		return fmt.Errorf("failed to write record: %w", err)
	}

	zap.L().Info("Transaction record appended in Formance",
		zap.String("address", addr),
		zap.String("type", string(record.Type)),
		zap.String("status", string(record.Status)))
	return nil
}

func (s *Service) UpdateRecordStatus(ctx context.Context, userId, reference string, status models.TxStatus, at time.Time) error {
	if _, err := s.GetRecord(ctx, userId, reference); err != nil {
		return err
	}

	_, err := s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:  s.ledger,
		Address: recordAddress(userId, reference),
		RequestBody: map[string]string{
			"status":     string(status),
			"updated_at": at.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update record status: %w", err)
	}

	zap.L().Info("Transaction record status updated in Formance",
		zap.String("user_id", userId),
		zap.String("reference", reference),
		zap.String("status", string(status)))
	return nil
}

func (s *Service) GetRecord(ctx context.Context, userId, reference string) (*models.TransactionRecord, error) {
	if _, err := s.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	meta, err := s.getAccountMetadata(ctx, recordAddress(userId, reference))
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if meta["reference"] == "" {
		return nil, fmt.Errorf("%w: record %s", store.ErrNotFound, reference)
	}
	return metadataToRecord(meta)
}

// GetRecords returns the user's history, newest first
func (s *Service) GetRecords(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	if _, err := s.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	accounts, err := s.listAccounts(ctx, map[string]any{
		"$and": []any{
			map[string]any{"$match": map[string]any{"metadata[entity_type]": recordEntityType}},
			map[string]any{"$match": map[string]any{"metadata[user_id]": userId}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]models.TransactionRecord, 0, len(accounts))
	for _, acct := range accounts {
		record, err := metadataToRecord(acct.Metadata)
		if err != nil {
			zap.L().Warn("Skipping malformed record account",
				zap.String("address", acct.Address),
				zap.Error(err))
			continue
		}
		records = append(records, *record)
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []models.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

func recordToMetadata(userId string, r models.TransactionRecord) map[string]string {
	meta := map[string]string{
		"entity_type":        recordEntityType,
		"user_id":            userId,
		"reference":          r.Reference,
		"from":               r.From,
		"to":                 r.To,
		"type":               string(r.Type),
		"amount":             r.Amount.String(),
		"currency_code":      r.CurrencyCode,
		"timestamp":          r.Timestamp.UTC().Format(time.RFC3339Nano),
		"status":             string(r.Status),
		"narration":          r.Narration,
		"liquidity_provider": r.LiquidityProvider,
	}
	if r.UpdatedAt != nil {
		meta["updated_at"] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return meta
}

func metadataToRecord(meta map[string]string) (*models.TransactionRecord, error) {
	amount, err := decimal.NewFromString(meta["amount"])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", meta["amount"], err)
	}
	ts, err := time.Parse(time.RFC3339Nano, meta["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", meta["timestamp"], err)
	}

	record := &models.TransactionRecord{
		Reference:         meta["reference"],
		From:              meta["from"],
		To:                meta["to"],
		Type:              models.TxType(meta["type"]),
		Amount:            amount,
		CurrencyCode:      meta["currency_code"],
		Timestamp:         ts,
		Status:            models.TxStatus(meta["status"]),
		Narration:         meta["narration"],
		LiquidityProvider: meta["liquidity_provider"],
	}
	if v := meta["updated_at"]; v != "" {
		updated, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at %q: %w", v, err)
		}
		record.UpdatedAt = &updated
	}
	return record, nil
}
