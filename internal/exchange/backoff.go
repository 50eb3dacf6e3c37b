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

package exchange

import (
	"context"
	"math"
	"time"

	"wallet-exchange-go/internal/models"
)

// Backoff is the retry policy shared by quote and order status polling:
// the delay grows by Multiplier from Initial, capped at Max, for at most
// MaxAttempts fetches.
type Backoff struct {
	Initial     time.Duration
	Multiplier  float64
	Max         time.Duration
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     2 * time.Second,
		Multiplier:  1.5,
		Max:         30 * time.Second,
		MaxAttempts: 30,
	}
}

// BackoffFromConfig fills unset fields from DefaultBackoff
func BackoffFromConfig(cfg models.PollConfig) Backoff {
	b := DefaultBackoff()
	if cfg.InitialInterval > 0 {
		b.Initial = cfg.InitialInterval
	}
	if cfg.Multiplier >= 1 {
		b.Multiplier = cfg.Multiplier
	}
	if cfg.MaxInterval > 0 {
		b.Max = cfg.MaxInterval
	}
	if cfg.MaxAttempts > 0 {
		b.MaxAttempts = cfg.MaxAttempts
	}
	return b
}

// Delay returns the wait after the given zero-based attempt
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
