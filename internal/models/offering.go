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
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is a payin or payout method advertised by an offering
type PaymentMethod struct {
	Kind                    string         `json:"kind"`
	Name                    string         `json:"name,omitempty"`
	Description             string         `json:"description,omitempty"`
	EstimatedSettlementTime int            `json:"estimatedSettlementTime,omitempty"` // minutes
	RequiredPaymentDetails  map[string]any `json:"requiredPaymentDetails,omitempty"`
}

// PayinDetails describes the currency a holder pays in
type PayinDetails struct {
	CurrencyCode string           `json:"currencyCode"`
	Min          *decimal.Decimal `json:"min,omitempty"`
	Max          *decimal.Decimal `json:"max,omitempty"`
	Methods      []PaymentMethod  `json:"methods"`
}

// PayoutDetails describes the currency a holder receives
type PayoutDetails struct {
	CurrencyCode string          `json:"currencyCode"`
	Methods      []PaymentMethod `json:"methods"`
}

// OfferingMetadata identifies an offering and the provider that published it
type OfferingMetadata struct {
	From      string    `json:"from"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Protocol  string    `json:"protocol,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// OfferingData holds the advertised rate and requirements
type OfferingData struct {
	Description             string                  `json:"description,omitempty"`
	PayoutUnitsPerPayinUnit decimal.Decimal         `json:"payoutUnitsPerPayinUnit"`
	Payin                   PayinDetails            `json:"payin"`
	Payout                  PayoutDetails           `json:"payout"`
	RequiredClaims          *PresentationDefinition `json:"requiredClaims,omitempty"`
}

// Offering is a provider-signed exchange rate advertisement.
// Offerings are immutable once fetched; a refetch replaces them.
type Offering struct {
	Metadata  OfferingMetadata `json:"metadata"`
	Data      OfferingData     `json:"data"`
	Signature string           `json:"signature,omitempty"`
}

func (o Offering) ProviderDID() string    { return o.Metadata.From }
func (o Offering) PayinCurrency() string  { return o.Data.Payin.CurrencyCode }
func (o Offering) PayoutCurrency() string { return o.Data.Payout.CurrencyCode }

// Pair renders the offering as "USD to EUR", the label format used by the
// provider directory.
func (o Offering) Pair() string {
	return fmt.Sprintf("%s to %s", o.PayinCurrency(), o.PayoutCurrency())
}

// SettlementTime returns the estimated payout settlement time of the first
// payout method, in minutes.
func (o Offering) SettlementTime() int {
	if len(o.Data.Payout.Methods) == 0 {
		return 0
	}
	return o.Data.Payout.Methods[0].EstimatedSettlementTime
}

// Validate checks the invariants an offering must hold before it is used
func (o Offering) Validate() error {
	if o.Metadata.ID == "" {
		return fmt.Errorf("offering id is empty")
	}
	if o.Metadata.From == "" {
		return fmt.Errorf("offering %s has no provider identity", o.Metadata.ID)
	}
	if !o.Data.PayoutUnitsPerPayinUnit.IsPositive() {
		return fmt.Errorf("offering %s has non-positive rate %s", o.Metadata.ID, o.Data.PayoutUnitsPerPayinUnit)
	}
	if strings.TrimSpace(o.PayinCurrency()) == "" || strings.TrimSpace(o.PayoutCurrency()) == "" {
		return fmt.Errorf("offering %s is missing a currency code", o.Metadata.ID)
	}
	return nil
}

// HasPayinMethod reports whether kind is one of the offering's payin methods
func (o Offering) HasPayinMethod(kind string) bool {
	return hasMethod(o.Data.Payin.Methods, kind)
}

// HasPayoutMethod reports whether kind is one of the offering's payout methods
func (o Offering) HasPayoutMethod(kind string) bool {
	return hasMethod(o.Data.Payout.Methods, kind)
}

func hasMethod(methods []PaymentMethod, kind string) bool {
	for _, m := range methods {
		if m.Kind == kind {
			return true
		}
	}
	return false
}
