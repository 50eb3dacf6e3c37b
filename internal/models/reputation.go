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

// ProviderReputation is the aggregate rating of a liquidity provider
type ProviderReputation struct {
	ProviderDID   string          `json:"providerDid"`
	Ratings       []int           `json:"ratings"`
	TotalRatings  int             `json:"totalRatings"`
	AverageRating decimal.Decimal `json:"averageRating"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Apply folds one more rating into the reputation. The average is
// recomputed from the full list, so it equals the running mean
// (old*n + r)/(n+1) without accumulating rounding error.
func (r *ProviderReputation) Apply(rating int) {
	r.Ratings = append(r.Ratings, rating)
	r.TotalRatings = len(r.Ratings)
	r.AverageRating = r.Mean()
}

// Mean recomputes the average directly from the rating list
func (r ProviderReputation) Mean() decimal.Decimal {
	if len(r.Ratings) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range r.Ratings {
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(r.Ratings))), 8)
}

// UserRating is one entry in a user's rating history
type UserRating struct {
	ProviderDID string    `json:"liquidityProvider"`
	Rating      int       `json:"rating"`
	Timestamp   time.Time `json:"timestamp"`
}
