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

import "github.com/shopspring/decimal"

// LiquidityProvider is a provider directory entry
type LiquidityProvider struct {
	Name     string   `yaml:"name" json:"name"`
	DID      string   `yaml:"did" json:"did"`
	Endpoint string   `yaml:"endpoint" json:"endpoint"`
	Pairs    []string `yaml:"pairs" json:"pairs,omitempty"`
}

// Supports reports whether the provider lists the "X to Y" pair
func (p LiquidityProvider) Supports(payin, payout string) bool {
	want := payin + " to " + payout
	for _, pair := range p.Pairs {
		if pair == want {
			return true
		}
	}
	return false
}

// ProviderListing joins a directory entry with its reputation and offerings
type ProviderListing struct {
	Provider     LiquidityProvider `json:"provider"`
	Rating       decimal.Decimal   `json:"rating"`
	TotalRatings int               `json:"totalRatings"`
	Offerings    []Offering        `json:"offerings"`
}
