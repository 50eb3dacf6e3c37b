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
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProtocolVersion is the protocol version stamped on every outgoing message
const ProtocolVersion = "1.0"

// MessageKind is the closed set of message types in an exchange thread
type MessageKind string

const (
	KindRFQ         MessageKind = "rfq"
	KindQuote       MessageKind = "quote"
	KindOrder       MessageKind = "order"
	KindOrderStatus MessageKind = "orderstatus"
	KindClose       MessageKind = "close"
)

// Valid reports whether k is a known message kind
func (k MessageKind) Valid() bool {
	switch k {
	case KindRFQ, KindQuote, KindOrder, KindOrderStatus, KindClose:
		return true
	}
	return false
}

// MessageMetadata is common to every message in a thread
type MessageMetadata struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Kind       MessageKind `json:"kind"`
	ID         string      `json:"id"`
	ExchangeID string      `json:"exchangeId"`
	Protocol   string      `json:"protocol"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type SelectedPayinMethod struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

type SelectedPayoutMethod struct {
	Kind string `json:"kind"`
}

// RFQData is the public payload of a request for quote
type RFQData struct {
	OfferingID string               `json:"offeringId"`
	Payin      SelectedPayinMethod  `json:"payin"`
	Payout     SelectedPayoutMethod `json:"payout"`
	Claims     []string             `json:"claims,omitempty"`
}

// PaymentDetails carries the holder's account details for one leg
type PaymentDetails struct {
	PaymentDetails map[string]any `json:"paymentDetails,omitempty"`
}

// RFQPrivateData holds the payment details that are not part of the signed
// public payload.
type RFQPrivateData struct {
	Payin  PaymentDetails `json:"payin"`
	Payout PaymentDetails `json:"payout"`
}

type PaymentInstruction struct {
	Link        string `json:"link,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// QuoteDetails is one leg of a quote
type QuoteDetails struct {
	CurrencyCode       string              `json:"currencyCode"`
	Amount             decimal.Decimal     `json:"amount"`
	Fee                *decimal.Decimal    `json:"fee,omitempty"`
	PaymentInstruction *PaymentInstruction `json:"paymentInstruction,omitempty"`
}

// Total returns the amount plus the fee, if any
func (d QuoteDetails) Total() decimal.Decimal {
	if d.Fee == nil {
		return d.Amount
	}
	return d.Amount.Add(*d.Fee)
}

type QuoteData struct {
	ExpiresAt time.Time    `json:"expiresAt"`
	Payin     QuoteDetails `json:"payin"`
	Payout    QuoteDetails `json:"payout"`
}

type OrderStatusData struct {
	OrderStatus string `json:"orderStatus"`
}

type CloseData struct {
	Reason  string `json:"reason,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// Message is a tagged variant over the protocol message kinds. Exactly one
// payload field is set, selected by Metadata.Kind; an order carries none.
type Message struct {
	Metadata    MessageMetadata
	RFQ         *RFQData
	Quote       *QuoteData
	OrderStatus *OrderStatusData
	Close       *CloseData
	PrivateData *RFQPrivateData
	Signature   string
}

type wireMessage struct {
	Metadata    MessageMetadata `json:"metadata"`
	Data        json.RawMessage `json:"data"`
	PrivateData *RFQPrivateData `json:"privateData,omitempty"`
	Signature   string          `json:"signature,omitempty"`
}

// NewMessageID returns a fresh message id prefixed with its kind
func NewMessageID(kind MessageKind) string {
	return fmt.Sprintf("%s_%s", kind, uuid.New().String())
}

func (m Message) Kind() MessageKind { return m.Metadata.Kind }

func (m Message) payload() (any, error) {
	switch m.Metadata.Kind {
	case KindRFQ:
		if m.RFQ == nil {
			return nil, fmt.Errorf("%w: rfq %s has no data", ErrProtocolViolation, m.Metadata.ID)
		}
		return m.RFQ, nil
	case KindQuote:
		if m.Quote == nil {
			return nil, fmt.Errorf("%w: quote %s has no data", ErrProtocolViolation, m.Metadata.ID)
		}
		return m.Quote, nil
	case KindOrder:
		return struct{}{}, nil
	case KindOrderStatus:
		if m.OrderStatus == nil {
			return nil, fmt.Errorf("%w: order status %s has no data", ErrProtocolViolation, m.Metadata.ID)
		}
		return m.OrderStatus, nil
	case KindClose:
		if m.Close == nil {
			return nil, fmt.Errorf("%w: close %s has no data", ErrProtocolViolation, m.Metadata.ID)
		}
		return m.Close, nil
	default:
		return nil, fmt.Errorf("%w: unknown message kind %q", ErrProtocolViolation, m.Metadata.Kind)
	}
}

func (m Message) MarshalJSON() ([]byte, error) {
	payload, err := m.payload()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{
		Metadata:    m.Metadata,
		Data:        data,
		PrivateData: m.PrivateData,
		Signature:   m.Signature,
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	msg := Message{
		Metadata:    w.Metadata,
		PrivateData: w.PrivateData,
		Signature:   w.Signature,
	}

	var target any
	switch w.Metadata.Kind {
	case KindRFQ:
		msg.RFQ = &RFQData{}
		target = msg.RFQ
	case KindQuote:
		msg.Quote = &QuoteData{}
		target = msg.Quote
	case KindOrder:
	case KindOrderStatus:
		msg.OrderStatus = &OrderStatusData{}
		target = msg.OrderStatus
	case KindClose:
		msg.Close = &CloseData{}
		target = msg.Close
	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrProtocolViolation, w.Metadata.Kind)
	}

	if target != nil && len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, target); err != nil {
			return fmt.Errorf("invalid %s data: %w", w.Metadata.Kind, err)
		}
	}

	*m = msg
	return nil
}

// Digest is the SHA-256 hash of the message metadata and public data. It is
// what a sender signs.
func (m Message) Digest() ([]byte, error) {
	payload, err := m.payload()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(struct {
		Metadata MessageMetadata `json:"metadata"`
		Data     any             `json:"data"`
	}{m.Metadata, payload})
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Thread is the ordered message list of one exchange
type Thread []Message

// ExchangeID returns the exchange id of the thread, or "" if it is empty
func (t Thread) ExchangeID() string {
	if len(t) == 0 {
		return ""
	}
	return t[0].Metadata.ExchangeID
}

// First returns the first message of the given kind, or nil
func (t Thread) First(kind MessageKind) *Message {
	for i := range t {
		if t[i].Metadata.Kind == kind {
			return &t[i]
		}
	}
	return nil
}

// Last returns the last message of the given kind, or nil
func (t Thread) Last(kind MessageKind) *Message {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Metadata.Kind == kind {
			return &t[i]
		}
	}
	return nil
}

// Latest returns the final message of the thread, or nil
func (t Thread) Latest() *Message {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}
