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
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"wallet-exchange-go/internal/aggregator"
	"wallet-exchange-go/internal/api"
	"wallet-exchange-go/internal/cache"
	"wallet-exchange-go/internal/config"
	"wallet-exchange-go/internal/credentials"
	"wallet-exchange-go/internal/database"
	"wallet-exchange-go/internal/exchange"
	"wallet-exchange-go/internal/formance"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/notify"
	"wallet-exchange-go/internal/offerings"
	"wallet-exchange-go/internal/pfi"
	"wallet-exchange-go/internal/store"
	"wallet-exchange-go/internal/wallet"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	Ledger     store.LedgerStore
	Cache      *cache.BadgerCache
	Directory  *Directory
	Transport  *pfi.Client
	Offerings  *offerings.Service
	Driver     *exchange.Driver
	Aggregator *aggregator.Aggregator
	Bus        *notify.Bus
	Wallet     *wallet.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the full wallet: SQLite for users and
// reputations, the configured ledger backend for transaction records, the
// offering cache, the provider transport and the exchange driver.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &Services{DbService: dbService, Ledger: dbService}

	if cfg.Ledger.Backend == config.LedgerFormance {
		zap.L().Info("Using Formance ledger for transaction records")
		formanceService, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Ledger = formanceService
	}

	s.Directory, err = LoadDirectory(cfg.Cache.ProvidersFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	zap.L().Info("Loaded provider directory", zap.Int("providers", len(s.Directory.Providers())))

	s.Cache, err = cache.NewBadgerCache(cfg.Cache.Dir)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("unable to open offering cache: %w", err)
	}

	s.Transport, err = pfi.NewClient(s.Directory, cfg.PFI)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Offerings = offerings.NewService(s.Cache, s.Transport)
	s.Driver = exchange.NewDriver(s.Transport, exchange.BackoffFromConfig(cfg.Poll))
	s.Aggregator = aggregator.New(s.Transport, s.Offerings)
	s.Bus = notify.NewBus()

	var publisher notify.Publisher = s.Bus
	if cfg.Notify.WebhookURL != "" {
		zap.L().Info("Delivering notifications to webhook", zap.String("url", cfg.Notify.WebhookURL))
		publisher = notify.Multi{s.Bus, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.PFI.RequestTimeout)}
	}

	// Users, identities and reputations stay in SQLite; only records follow
	// the ledger backend.
	s.Wallet = wallet.NewService(wallet.Deps{
		Users:     dbService,
		Ledger:    api.NewLedgerService(s.Ledger),
		Ratings:   api.NewRatingService(dbService),
		Offerings: s.Offerings,
		Driver:    s.Driver,
		Directory: s.Directory,
		Publisher: publisher,
		Issuer:    credentials.NewIssuer(cfg.Credentials.IssuerURL, cfg.PFI.RequestTimeout),
	})

	return s, nil
}

// separateLedger reports whether records live outside the SQLite database
func (cs *Services) separateLedger() bool {
	return cs.Ledger != nil && cs.Ledger != store.LedgerStore(cs.DbService)
}

// CreateUser adds the user to SQLite and, when records live elsewhere, to
// the ledger backend under the same id.
func (cs *Services) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	user, err := cs.DbService.CreateUser(ctx, userId, name, email)
	if err != nil {
		return nil, err
	}
	if cs.separateLedger() {
		if _, err := cs.Ledger.CreateUser(ctx, userId, name, email); err != nil {
			return nil, fmt.Errorf("user created locally but not in ledger: %w", err)
		}
	}
	return user, nil
}

// SyncLedgerUsers copies SQLite users missing from a separate ledger
// backend. It returns how many were copied.
func (cs *Services) SyncLedgerUsers(ctx context.Context) (int, error) {
	if !cs.separateLedger() {
		return 0, nil
	}
	users, err := cs.DbService.GetUsers(ctx)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, u := range users {
		_, err := cs.Ledger.GetUserById(ctx, u.Id)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			return copied, err
		}
		if _, err := cs.Ledger.CreateUser(ctx, u.Id, u.Name, u.Email); err != nil {
			return copied, fmt.Errorf("unable to copy user %s to ledger: %w", u.Id, err)
		}
		copied++
	}
	return copied, nil
}

func (cs *Services) Close() {
	if cs.Cache != nil {
		if err := cs.Cache.Close(); err != nil {
			zap.L().Warn("Failed to close offering cache", zap.Error(err))
		}
	}
	if cs.separateLedger() {
		cs.Ledger.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
