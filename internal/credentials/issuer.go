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

package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultIssuerURL is the public mock identity verification service that
// issues Known Customer Credentials.
const DefaultIssuerURL = "https://mock-idv.tbddev.org"

var ErrIssuance = errors.New("credential issuance failed")

// Subject identifies the holder a credential is requested for
type Subject struct {
	Name    string
	Country string // ISO 3166-1 alpha-2
	DID     string
}

// Issuer requests Known Customer Credentials (VC JWTs) over HTTP
type Issuer struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewIssuer(baseURL string, timeout time.Duration) *Issuer {
	if baseURL == "" {
		baseURL = DefaultIssuerURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Issuer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "credential-issuer",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				zap.L().Info("Issuer breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// Issue fetches a credential for subject. The response must be a JWT whose
// subject, when present, is the holder DID.
func (i *Issuer) Issue(ctx context.Context, subject Subject) (string, error) {
	if subject.Name == "" || subject.DID == "" {
		return "", fmt.Errorf("%w: name and did are required", ErrIssuance)
	}
	if len(subject.Country) != 2 {
		return "", fmt.Errorf("%w: country must be a two-letter code, got %q", ErrIssuance, subject.Country)
	}

	query := url.Values{}
	query.Set("name", subject.Name)
	query.Set("country", strings.ToUpper(subject.Country))
	query.Set("did", subject.DID)
	endpoint := i.baseURL + "/kcc?" + query.Encode()

	out, err := i.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				zap.L().Warn("Failed to close issuer response body", zap.Error(err))
			}
		}(resp.Body)

		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("issuer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIssuance, err)
	}
	credential := out.(string)

	claims, err := decode(credential)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIssuance, err)
	}
	if sub, _ := claims["sub"].(string); sub != "" && sub != subject.DID {
		return "", fmt.Errorf("%w: credential issued to %s, not %s", ErrIssuance, sub, subject.DID)
	}

	zap.L().Info("Credential issued",
		zap.String("did", subject.DID),
		zap.String("country", subject.Country))
	return credential, nil
}
