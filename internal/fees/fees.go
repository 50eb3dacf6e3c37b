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

package fees

import (
	"errors"
	"fmt"

	"wallet-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrInvalidRate   = fmt.Errorf("%w: exchange rate must be greater than zero", ErrValidation)
)

var (
	DefaultFixedFee       = decimal.RequireFromString("0.5")
	DefaultPercentageFee  = decimal.RequireFromString("0.01")
	DefaultExchangeMargin = decimal.RequireFromString("0.005")
)

// Calculator computes transaction fees. The zero value is not usable; start
// from NewCalculator.
type Calculator struct {
	FixedFee       decimal.Decimal
	PercentageFee  decimal.Decimal
	ExchangeMargin decimal.Decimal
}

func NewCalculator() Calculator {
	return Calculator{
		FixedFee:       DefaultFixedFee,
		PercentageFee:  DefaultPercentageFee,
		ExchangeMargin: DefaultExchangeMargin,
	}
}

type FeeRequest struct {
	Amount         string
	PayinCurrency  string
	PayoutCurrency string
	ExchangeRate   string
}

// ComputeTransactionFee applies the fixed and percentage fees and, for a
// cross-currency request, converts the total at the rate less the margin.
// The result is rounded to 2 decimal places.
func (c Calculator) ComputeTransactionFee(req FeeRequest) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, req.Amount)
	}
	rate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, req.ExchangeRate)
	}

	fee := c.FixedFee.Add(amount.Mul(c.PercentageFee))
	if req.PayinCurrency == req.PayoutCurrency {
		return fee.Round(2), nil
	}

	adjusted := rate.Mul(decimal.NewFromInt(1).Sub(c.ExchangeMargin))
	return amount.Add(fee).Mul(adjusted).Round(2), nil
}

// ComputePayoutAmount returns payinAmount * rate rounded to 2 decimal
// places. An empty payinAmount yields an empty result.
func ComputePayoutAmount(payinAmount string, offering models.Offering) (string, error) {
	if payinAmount == "" {
		return "", nil
	}
	amount, err := decimal.NewFromString(payinAmount)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, payinAmount)
	}
	return amount.Mul(offering.Data.PayoutUnitsPerPayinUnit).StringFixed(2), nil
}
