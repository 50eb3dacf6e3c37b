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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxSend    TxType = "SEND"
	TxConvert TxType = "CONVERT"
	TxReceive TxType = "RECEIVE"
)

func (t TxType) Valid() bool {
	return t == TxSend || t == TxConvert || t == TxReceive
}

type TxStatus string

const (
	TxProcessing TxStatus = "processing"
	TxCompleted  TxStatus = "completed"
	TxFailed     TxStatus = "failed"
)

func (s TxStatus) Valid() bool {
	return s == TxProcessing || s == TxCompleted || s == TxFailed
}

// TransactionRecord is the holder-facing ledger entry for a money movement.
// Reference is unique per user and is the key for status updates.
type TransactionRecord struct {
	Reference         string          `json:"reference"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	Type              TxType          `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	CurrencyCode      string          `json:"currencyCode"`
	Timestamp         time.Time       `json:"timestamp"`
	Status            TxStatus        `json:"status"`
	Narration         string          `json:"narration,omitempty"`
	LiquidityProvider string          `json:"liquidityProvider,omitempty"`
	UpdatedAt         *time.Time      `json:"updatedAt,omitempty"`
}
