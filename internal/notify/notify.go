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

package notify

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	TxSuccess       EventType = "TX_SUCCESS"
	TxFail          EventType = "TX_FAIL"
	ExchangeSuccess EventType = "EXCHANGE_SUCCESS"
	ExchangeFail    EventType = "EXCHANGE_FAIL"
)

// Event is a user-facing notification about a money movement
type Event struct {
	Type        EventType `json:"type"`
	UserId      string    `json:"userId"`
	Reference   string    `json:"reference"`
	ExchangeID  string    `json:"exchangeId,omitempty"`
	ProviderDID string    `json:"providerDid,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers events to whatever renders them
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
