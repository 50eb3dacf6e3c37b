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

package pfi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const maxResponseBytes = 4 << 20

// Client is the HTTP Transport. Each provider gets its own circuit breaker;
// all providers share one rate limiter.
type Client struct {
	resolver Resolver
	http     *http.Client
	limiter  ratelimit.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

var _ Transport = (*Client)(nil)

func NewClient(resolver Resolver, cfg models.PFIConfig) (*Client, error) {
	if resolver == nil {
		return nil, fmt.Errorf("provider resolver cannot be nil")
	}
	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	return &Client{
		resolver: resolver,
		http:     httpClient,
		limiter:  limiter,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

func (c *Client) breaker(providerDID string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[providerDID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    providerDID,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				zap.L().Warn("Provider seems down, stop allowing requests", zap.String("provider", name))
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				zap.L().Info("Checking provider status", zap.String("provider", name))
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				zap.L().Info("Provider seems ok, restart allowing requests", zap.String("provider", name))
			}
		},
	})
	c.breakers[providerDID] = cb
	return cb
}

type request struct {
	op       string
	provider string
	method   string
	path     string
	body     any
	holder   identity.Signer
}

type response struct {
	status int
	body   []byte
}

// do sends a request to the provider and decodes a 2xx body into out (if
// non-nil). Network failures and 5xx responses count against the breaker;
// 4xx responses do not.
func (c *Client) do(ctx context.Context, r request, out any) error {
	fail := func(status int, err error) error {
		metrics.PFIRequests.WithLabelValues(r.provider, r.op, "error").Inc()
		return &TransportError{Op: r.op, Provider: r.provider, StatusCode: status, Err: err}
	}

	endpoint, err := c.resolver.Endpoint(r.provider)
	if err != nil {
		return fail(0, err)
	}

	var payload []byte
	if r.body != nil {
		if payload, err = json.Marshal(r.body); err != nil {
			return fail(0, fmt.Errorf("unable to encode request: %w", err))
		}
	}

	var bearer string
	if r.holder != nil {
		if bearer, err = identity.BearerToken(r.holder, r.provider); err != nil {
			return fail(0, err)
		}
	}

	c.limiter.Take()
	if err := ctx.Err(); err != nil {
		return fail(0, err)
	}

	result, err := c.breaker(r.provider).Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, r.method, strings.TrimRight(endpoint, "/")+r.path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &TransportError{Op: r.op, Provider: r.provider, StatusCode: resp.StatusCode, Err: errors.New(errorDetail(body))}
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return fail(te.StatusCode, te.Err)
		}
		return fail(0, err)
	}

	res := result.(*response)
	if res.status < 200 || res.status > 299 {
		return fail(res.status, errors.New(errorDetail(res.body)))
	}

	metrics.PFIRequests.WithLabelValues(r.provider, r.op, "ok").Inc()
	if out == nil || len(res.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fail(res.status, fmt.Errorf("unable to decode response: %w", err))
	}
	return nil
}

// errorDetail extracts {"errors":[{"detail":...}]} when present
func errorDetail(body []byte) string {
	var parsed struct {
		Errors []struct {
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		details := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			details = append(details, e.Detail)
		}
		return strings.Join(details, "; ")
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func (c *Client) GetOfferings(ctx context.Context, providerDID string) ([]models.Offering, error) {
	var out struct {
		Data []models.Offering `json:"data"`
	}
	if err := c.do(ctx, request{op: "get_offerings", provider: providerDID, method: http.MethodGet, path: "/offerings"}, &out); err != nil {
		return nil, err
	}

	offerings := make([]models.Offering, 0, len(out.Data))
	for _, o := range out.Data {
		if err := o.Validate(); err != nil {
			zap.L().Warn("Dropping invalid offering", zap.String("provider", providerDID), zap.Error(err))
			continue
		}
		offerings = append(offerings, o)
	}
	return offerings, nil
}

type messageEnvelope struct {
	Message models.Message `json:"message"`
}

func (c *Client) CreateExchange(ctx context.Context, rfq models.Message) error {
	if rfq.Kind() != models.KindRFQ {
		return fmt.Errorf("%w: create exchange requires an rfq, got %s", models.ErrProtocolViolation, rfq.Kind())
	}
	return c.do(ctx, request{
		op:       "create_exchange",
		provider: rfq.Metadata.To,
		method:   http.MethodPost,
		path:     "/exchanges",
		body:     messageEnvelope{Message: rfq},
	}, nil)
}

func (c *Client) GetExchange(ctx context.Context, providerDID string, holder identity.Signer, exchangeID string) (models.Thread, error) {
	var out struct {
		Data models.Thread `json:"data"`
	}
	err := c.do(ctx, request{
		op:       "get_exchange",
		provider: providerDID,
		method:   http.MethodGet,
		path:     "/exchanges/" + url.PathEscape(exchangeID),
		holder:   holder,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetExchanges lists the holder's threads with a provider. A thread that
// does not decode is logged and left out rather than failing the listing.
func (c *Client) GetExchanges(ctx context.Context, providerDID string, holder identity.Signer) ([]models.Thread, error) {
	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	err := c.do(ctx, request{
		op:       "get_exchanges",
		provider: providerDID,
		method:   http.MethodGet,
		path:     "/exchanges",
		holder:   holder,
	}, &out)
	if err != nil {
		return nil, err
	}

	threads := make([]models.Thread, 0, len(out.Data))
	for i, raw := range out.Data {
		var thread models.Thread
		if err := json.Unmarshal(raw, &thread); err != nil {
			zap.L().Warn("Dropping undecodable exchange",
				zap.String("provider", providerDID),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func (c *Client) SubmitOrder(ctx context.Context, order models.Message) error {
	if order.Kind() != models.KindOrder {
		return fmt.Errorf("%w: expected order, got %s", models.ErrProtocolViolation, order.Kind())
	}
	return c.submit(ctx, "submit_order", order)
}

func (c *Client) SubmitClose(ctx context.Context, msg models.Message) error {
	if msg.Kind() != models.KindClose {
		return fmt.Errorf("%w: expected close, got %s", models.ErrProtocolViolation, msg.Kind())
	}
	return c.submit(ctx, "submit_close", msg)
}

func (c *Client) submit(ctx context.Context, op string, msg models.Message) error {
	return c.do(ctx, request{
		op:       op,
		provider: msg.Metadata.To,
		method:   http.MethodPut,
		path:     "/exchanges/" + url.PathEscape(msg.Metadata.ExchangeID),
		body:     messageEnvelope{Message: msg},
	}, nil)
}
