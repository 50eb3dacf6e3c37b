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

package pfi

import (
	"context"
	"errors"
	"fmt"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"
)

// ErrTransport matches every *TransportError with errors.Is
var ErrTransport = errors.New("transport error")

// TransportError is a failed call to a provider service
type TransportError struct {
	Op         string
	Provider   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Transport is the message transport to liquidity provider services
type Transport interface {
	GetOfferings(ctx context.Context, providerDID string) ([]models.Offering, error)
	CreateExchange(ctx context.Context, rfq models.Message) error
	GetExchange(ctx context.Context, providerDID string, holder identity.Signer, exchangeID string) (models.Thread, error)
	GetExchanges(ctx context.Context, providerDID string, holder identity.Signer) ([]models.Thread, error)
	SubmitOrder(ctx context.Context, order models.Message) error
	SubmitClose(ctx context.Context, msg models.Message) error
}

// Resolver maps a provider DID to its service endpoint
type Resolver interface {
	Endpoint(providerDID string) (string, error)
}
