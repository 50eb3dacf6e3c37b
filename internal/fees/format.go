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
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatSettlementTime renders minutes as "N minutes" or "H hours, M minutes".
// Zero and negative values render as "0".
func FormatSettlementTime(minutes int) string {
	if minutes <= 0 {
		return "0"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d hours, %d minutes", minutes/60, minutes%60)
}

var (
	one   = decimal.NewFromInt(1)
	cents = decimal.RequireFromString("0.01")
)

// FormatAmount renders an amount with precision that grows as the value
// shrinks: 2 places from 1 up, 4 places from 0.01, 6 places below.
func FormatAmount(amount decimal.Decimal) string {
	abs := amount.Abs()
	var places int32
	switch {
	case abs.GreaterThanOrEqual(one):
		places = 2
	case abs.GreaterThanOrEqual(cents):
		places = 4
	default:
		places = 6
	}
	return amount.Round(places).String()
}
