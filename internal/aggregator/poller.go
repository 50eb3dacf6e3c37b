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

package aggregator

import (
	"context"
	"sync"
	"time"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// Poller refreshes the aggregated exchange list on a fixed interval until
// stopped.
type Poller struct {
	agg       *Aggregator
	signer    identity.Signer
	providers []models.LiquidityProvider
	interval  time.Duration
	sink      func([]models.ExchangeSummary)

	mu       sync.RWMutex
	latest   []models.ExchangeSummary
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// StartPolling runs one aggregation pass immediately and then one per
// interval. Each result is handed to sink, which may be nil.
func (a *Aggregator) StartPolling(ctx context.Context, signer identity.Signer, providers []models.LiquidityProvider, interval time.Duration, sink func([]models.ExchangeSummary)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{
		agg:       a,
		signer:    signer,
		providers: providers,
		interval:  interval,
		sink:      sink,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	go p.pollLoop(ctx)

	zap.L().Info("Exchange poller started",
		zap.Duration("interval", interval),
		zap.Int("providers", len(providers)))
	return p
}

// Stop ends polling and waits for an in-flight pass to finish. It is safe
// to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	<-p.doneChan
}

// Done is closed once the poller has exited
func (p *Poller) Done() <-chan struct{} {
	return p.doneChan
}

// Latest returns the result of the most recent pass
func (p *Poller) Latest() []models.ExchangeSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer close(p.doneChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pass(ctx)

	for {
		select {
		case <-ticker.C:
			p.pass(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) pass(ctx context.Context) {
	summaries, err := p.agg.ListAllExchanges(ctx, p.signer, p.providers)
	if err != nil {
		zap.L().Debug("Aggregation pass interrupted", zap.Error(err))
		return
	}

	p.mu.Lock()
	p.latest = summaries
	p.mu.Unlock()

	if p.sink != nil {
		p.sink(summaries)
	}
}
