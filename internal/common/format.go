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

package common

import (
	"fmt"
	"strings"

	"wallet-exchange-go/internal/fees"
	"wallet-exchange-go/internal/models"
)

const DefaultWidth = 80

// PrintSeparator prints a line of char repeated width times
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "├  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

func PrintProvider(l models.ProviderListing, isLast bool) {
	detail := BoxDetailPrefix(isLast)
	fmt.Printf("%s%s (%s)\n", BoxPrefix(isLast), l.Provider.Name, l.Provider.DID)
	fmt.Printf("%s  rating: %s from %d ratings\n", detail, l.Rating.StringFixed(2), l.TotalRatings)
	for _, o := range l.Offerings {
		fmt.Printf("%s  %-14s rate %s  settles in %s  [%s]\n",
			detail,
			o.Pair(),
			o.Data.PayoutUnitsPerPayinUnit.String(),
			fees.FormatSettlementTime(o.SettlementTime()),
			o.Metadata.ID)
	}
}

func PrintRecord(r models.TransactionRecord, isLast bool) {
	detail := BoxDetailPrefix(isLast)
	fmt.Printf("%s%s %s %s  [%s]\n", BoxPrefix(isLast), r.Type, fees.FormatAmount(r.Amount), r.CurrencyCode, r.Status)
	fmt.Printf("%s  ref: %s  at: %s\n", detail, r.Reference, r.Timestamp.Format("2006-01-02 15:04:05"))
	if r.Narration != "" {
		fmt.Printf("%s  %s\n", detail, r.Narration)
	}
}

func PrintExchange(e models.ExchangeSummary, isLast bool) {
	detail := BoxDetailPrefix(isLast)
	fmt.Printf("%s%s  %s %s -> %s %s  [%s]\n",
		BoxPrefix(isLast),
		e.ID,
		fees.FormatAmount(e.PayinAmount),
		e.PayinCurrency,
		e.PayoutAmount,
		e.PayoutCurrency,
		e.Status)
	fmt.Printf("%s  provider: %s  created: %s\n", detail, e.ProviderDID, e.CreatedAt.Format("2006-01-02 15:04:05"))
}
