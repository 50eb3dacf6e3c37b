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

package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-exchange-go/internal/api"
	"wallet-exchange-go/internal/credentials"
	"wallet-exchange-go/internal/exchange"
	"wallet-exchange-go/internal/fees"
	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/notify"
	"wallet-exchange-go/internal/offerings"
	"wallet-exchange-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrNoProvider      = errors.New("no liquidity provider for pair")
	ErrUnknownProvider = errors.New("unknown liquidity provider")
	ErrAlreadyRated    = errors.New("provider already rated by user")
	ErrNoQuote         = errors.New("provider did not quote")
	ErrNoIssuer        = errors.New("no credential issuer configured")
)

// Directory lists the liquidity providers the wallet knows about
type Directory interface {
	Providers() []models.LiquidityProvider
}

// Issuer hands out credentials the wallet presents with an rfq
type Issuer interface {
	Issue(ctx context.Context, subject credentials.Subject) (string, error)
}

type Deps struct {
	Users     store.UserStore
	Ledger    *api.LedgerService
	Ratings   *api.RatingService
	Offerings *offerings.Service
	Driver    *exchange.Driver
	Directory Directory
	Publisher notify.Publisher
	Issuer    Issuer
}

// Service runs conversions end to end: it records the transaction, drives
// the exchange protocol, settles the record and notifies the holder.
type Service struct {
	users     store.UserStore
	ledger    *api.LedgerService
	ratings   *api.RatingService
	offerings *offerings.Service
	driver    *exchange.Driver
	directory Directory
	publisher notify.Publisher
	issuer    Issuer
	fees      fees.Calculator
	now       func() time.Time
}

func NewService(deps Deps) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Service{
		users:     deps.Users,
		ledger:    deps.Ledger,
		ratings:   deps.Ratings,
		offerings: deps.Offerings,
		driver:    deps.Driver,
		directory: deps.Directory,
		publisher: publisher,
		issuer:    deps.Issuer,
		fees:      fees.NewCalculator(),
		now:       time.Now,
	}
}

// Signer returns the user's wallet identity, creating and storing one on
// first use.
func (s *Service) Signer(ctx context.Context, userId string) (identity.Signer, error) {
	user, err := s.users.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.DID != "" {
		bearer, err := identity.Import(user.DID)
		if err != nil {
			return nil, fmt.Errorf("unable to load identity for user %s: %w", userId, err)
		}
		return bearer, nil
	}

	bearer, err := identity.NewBearerDID()
	if err != nil {
		return nil, fmt.Errorf("unable to create identity: %w", err)
	}
	portable, err := bearer.Export()
	if err != nil {
		return nil, fmt.Errorf("unable to export identity: %w", err)
	}
	if err := s.users.SetUserDID(ctx, userId, portable); err != nil {
		return nil, err
	}

	zap.L().Info("Created wallet identity", zap.String("user_id", userId), zap.String("did", bearer.DID()))
	return bearer, nil
}

// RequestCredential obtains a Known Customer Credential for the user's
// wallet identity and stores it with the user.
func (s *Service) RequestCredential(ctx context.Context, userId, country string) (string, error) {
	if s.issuer == nil {
		return "", ErrNoIssuer
	}
	signer, err := s.Signer(ctx, userId)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetUserById(ctx, userId)
	if err != nil {
		return "", err
	}

	credential, err := s.issuer.Issue(ctx, credentials.Subject{
		Name:    user.Name,
		Country: country,
		DID:     signer.DID(),
	})
	if err != nil {
		return "", err
	}
	if err := s.users.AddUserCredential(ctx, userId, credential); err != nil {
		return "", err
	}
	return credential, nil
}

func (s *Service) publish(ctx context.Context, event notify.Event) {
	event.Timestamp = s.now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("Notification not delivered",
			zap.String("type", string(event.Type)),
			zap.String("reference", event.Reference),
			zap.Error(err))
	}
}
