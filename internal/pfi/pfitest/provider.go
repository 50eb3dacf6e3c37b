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

// Package pfitest provides an in-memory provider for tests.
package pfitest

import (
	"context"
	"fmt"
	"sync"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/pfi"
)

// Provider is an in-memory pfi.Transport. Threads are kept per exchange id
// and returned in arrival order.
type Provider struct {
	mu sync.Mutex

	offerings map[string][]models.Offering
	threads   map[string]models.Thread
	order     []string
	failures  map[string]error
	calls     map[string]int

	// OnGetExchange runs before each GetExchange with the 1-based call count
	// for that exchange, so a test can add provider replies over time.
	OnGetExchange func(p *Provider, exchangeID string, call int)
}

var _ pfi.Transport = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		offerings: make(map[string][]models.Offering),
		threads:   make(map[string]models.Thread),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (p *Provider) SetOfferings(providerDID string, offerings ...models.Offering) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offerings[providerDID] = offerings
}

// Fail makes every call for providerDID return err; nil clears it
func (p *Provider) Fail(providerDID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, providerDID)
		return
	}
	p.failures[providerDID] = err
}

// Append adds msg to the thread of its exchange, creating it if needed
func (p *Provider) Append(msg models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appendLocked(msg)
}

func (p *Provider) appendLocked(msg models.Message) {
	id := msg.Metadata.ExchangeID
	if _, ok := p.threads[id]; !ok {
		p.order = append(p.order, id)
	}
	p.threads[id] = append(p.threads[id], msg)
}

// Thread returns a copy of the stored thread
func (p *Provider) Thread(exchangeID string) models.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(models.Thread(nil), p.threads[exchangeID]...)
}

// Calls returns how many times op was called; GetExchange is counted per
// exchange as "get_exchange:<id>".
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Provider) failure(providerDID, op string) error {
	p.calls[op]++
	if err, ok := p.failures[providerDID]; ok {
		return &pfi.TransportError{Op: op, Provider: providerDID, Err: err}
	}
	return nil
}

func (p *Provider) GetOfferings(_ context.Context, providerDID string) ([]models.Offering, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(providerDID, "get_offerings"); err != nil {
		return nil, err
	}
	return p.offerings[providerDID], nil
}

func (p *Provider) CreateExchange(_ context.Context, rfq models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(rfq.Metadata.To, "create_exchange"); err != nil {
		return err
	}
	if _, ok := p.threads[rfq.Metadata.ExchangeID]; ok {
		return &pfi.TransportError{Op: "create_exchange", Provider: rfq.Metadata.To, StatusCode: 409, Err: fmt.Errorf("exchange %s exists", rfq.Metadata.ExchangeID)}
	}
	p.appendLocked(rfq)
	return nil
}

func (p *Provider) GetExchange(_ context.Context, providerDID string, _ identity.Signer, exchangeID string) (models.Thread, error) {
	p.mu.Lock()
	key := "get_exchange:" + exchangeID
	p.calls[key]++
	call := p.calls[key]
	hook := p.OnGetExchange
	p.mu.Unlock()

	if hook != nil {
		hook(p, exchangeID, call)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(providerDID, "get_exchange"); err != nil {
		return nil, err
	}
	thread, ok := p.threads[exchangeID]
	if !ok {
		return nil, &pfi.TransportError{Op: "get_exchange", Provider: providerDID, StatusCode: 404, Err: fmt.Errorf("exchange %s not found", exchangeID)}
	}
	return append(models.Thread(nil), thread...), nil
}

func (p *Provider) GetExchanges(_ context.Context, providerDID string, holder identity.Signer) ([]models.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(providerDID, "get_exchanges"); err != nil {
		return nil, err
	}

	var out []models.Thread
	for _, id := range p.order {
		thread := p.threads[id]
		if len(thread) == 0 {
			continue
		}
		first := thread[0].Metadata
		if first.To != providerDID && first.From != providerDID {
			continue
		}
		if holder != nil && first.From != holder.DID() && first.To != holder.DID() {
			continue
		}
		out = append(out, append(models.Thread(nil), thread...))
	}
	return out, nil
}

func (p *Provider) SubmitOrder(_ context.Context, order models.Message) error {
	return p.submit("submit_order", order)
}

func (p *Provider) SubmitClose(_ context.Context, msg models.Message) error {
	return p.submit("submit_close", msg)
}

func (p *Provider) submit(op string, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(msg.Metadata.To, op); err != nil {
		return err
	}
	if _, ok := p.threads[msg.Metadata.ExchangeID]; !ok {
		return &pfi.TransportError{Op: op, Provider: msg.Metadata.To, StatusCode: 404, Err: fmt.Errorf("exchange %s not found", msg.Metadata.ExchangeID)}
	}
	p.appendLocked(msg)
	return nil
}
