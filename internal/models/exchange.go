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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeStatus is the negotiation state of an exchange
type ExchangeStatus string

const (
	StatusRFQSubmitted ExchangeStatus = "rfq_submitted"
	StatusQuoted       ExchangeStatus = "quoted"
	StatusOrdered      ExchangeStatus = "ordered"
	StatusClosed       ExchangeStatus = "closed"
)

var statusRank = map[ExchangeStatus]int{
	StatusRFQSubmitted: 0,
	StatusQuoted:       1,
	StatusOrdered:      2,
	StatusClosed:       3,
}

// Terminal reports whether no further transition is possible
func (s ExchangeStatus) Terminal() bool { return s == StatusClosed }

// Exchange is one negotiation between the holder and a provider over a
// single offering, from RFQ through Close.
type Exchange struct {
	ExchangeID     string           `json:"exchangeId"`
	OfferingID     string           `json:"offeringId"`
	ProviderDID    string           `json:"providerDid"`
	PayinAmount    decimal.Decimal  `json:"payinAmount"`
	PayinCurrency  string           `json:"payinCurrency,omitempty"`
	PayoutAmount   *decimal.Decimal `json:"payoutAmount,omitempty"`
	PayoutCurrency string           `json:"payoutCurrency,omitempty"`
	Status         ExchangeStatus   `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	ExpirationTime *time.Time       `json:"expirationTime,omitempty"`
	Rating         *int             `json:"rating,omitempty"`
	CloseReason    string           `json:"closeReason,omitempty"`
	LastStatus     string           `json:"lastStatus,omitempty"`
}

// NewExchange starts an exchange from the RFQ that created it
func NewExchange(rfq Message) (*Exchange, error) {
	if rfq.Kind() != KindRFQ || rfq.RFQ == nil {
		return nil, fmt.Errorf("%w: exchange must start with an rfq, got %s", ErrProtocolViolation, rfq.Kind())
	}
	id := rfq.Metadata.ExchangeID
	if id == "" {
		id = rfq.Metadata.ID
	}
	return &Exchange{
		ExchangeID:  id,
		OfferingID:  rfq.RFQ.OfferingID,
		ProviderDID: rfq.Metadata.To,
		PayinAmount: rfq.RFQ.Payin.Amount,
		Status:      StatusRFQSubmitted,
		CreatedAt:   rfq.Metadata.CreatedAt,
	}, nil
}

// Observe applies the transition implied by msg. A message that would move
// the exchange backwards, or that arrives before its required predecessor,
// returns ErrProtocolViolation and leaves the exchange unchanged.
func (e *Exchange) Observe(msg Message) error {
	if id := msg.Metadata.ExchangeID; id != "" && id != e.ExchangeID {
		return fmt.Errorf("%w: message %s belongs to exchange %s, not %s", ErrProtocolViolation, msg.Metadata.ID, id, e.ExchangeID)
	}
	if e.Status.Terminal() {
		return fmt.Errorf("%w: exchange %s is closed", ErrProtocolViolation, e.ExchangeID)
	}

	switch msg.Kind() {
	case KindRFQ:
		return fmt.Errorf("%w: duplicate rfq for exchange %s", ErrProtocolViolation, e.ExchangeID)

	case KindQuote:
		if e.Status != StatusRFQSubmitted && e.Status != StatusQuoted {
			return e.outOfOrder(msg)
		}
		if msg.Quote == nil {
			return fmt.Errorf("%w: quote %s has no data", ErrProtocolViolation, msg.Metadata.ID)
		}
		// payout is fixed by the first quote only
		if e.PayoutAmount == nil {
			amount := msg.Quote.Payout.Amount
			e.PayoutAmount = &amount
			e.PayinCurrency = msg.Quote.Payin.CurrencyCode
			e.PayoutCurrency = msg.Quote.Payout.CurrencyCode
		}
		expires := msg.Quote.ExpiresAt
		e.ExpirationTime = &expires
		e.advance(StatusQuoted)

	case KindOrder:
		if e.Status != StatusQuoted {
			return e.outOfOrder(msg)
		}
		e.advance(StatusOrdered)

	case KindOrderStatus:
		if e.Status != StatusOrdered {
			return e.outOfOrder(msg)
		}
		if msg.OrderStatus != nil {
			e.LastStatus = msg.OrderStatus.OrderStatus
		}

	case KindClose:
		if msg.Close != nil {
			e.CloseReason = msg.Close.Reason
		}
		e.advance(StatusClosed)

	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrProtocolViolation, msg.Kind())
	}
	return nil
}

func (e *Exchange) advance(to ExchangeStatus) {
	if statusRank[to] > statusRank[e.Status] {
		e.Status = to
	}
}

func (e *Exchange) outOfOrder(msg Message) error {
	return fmt.Errorf("%w: %s received while exchange %s is %s", ErrProtocolViolation, msg.Kind(), e.ExchangeID, e.Status)
}

// ExchangeFromThread folds an ordered message thread into an Exchange
func ExchangeFromThread(thread Thread) (*Exchange, error) {
	rfq := thread.First(KindRFQ)
	if rfq == nil {
		return nil, fmt.Errorf("%w: thread %s has no rfq", ErrProtocolViolation, thread.ExchangeID())
	}
	ex, err := NewExchange(*rfq)
	if err != nil {
		return nil, err
	}
	for _, msg := range thread {
		if msg.Metadata.ID == rfq.Metadata.ID {
			continue
		}
		if err := ex.Observe(msg); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// ExchangeSummary is the normalized display record for one exchange thread
type ExchangeSummary struct {
	ID             string          `json:"id"`
	ProviderDID    string          `json:"providerDid"`
	PayinAmount    decimal.Decimal `json:"payinAmount"`
	PayinCurrency  string          `json:"payinCurrency"`
	PayoutAmount   string          `json:"payoutAmount"`
	PayoutCurrency string          `json:"payoutCurrency"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpirationTime *time.Time      `json:"expirationTime,omitempty"`
	From           string          `json:"from"`
	To             string          `json:"to"`
}
