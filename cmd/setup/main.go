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

package main

import (
	"context"
	"flag"

	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"

	"go.uber.org/zap"
)

// prepareIdentities makes sure every user has a wallet DID
func prepareIdentities(ctx context.Context, services *common.Services) {
	users, err := services.DbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}

	var created, failed int
	for _, user := range users {
		zap.L().Info("Processing user",
			zap.String("id", user.Id),
			zap.String("name", user.Name),
			zap.String("email", user.Email))

		if user.DID != "" {
			continue
		}
		if _, err := services.Wallet.Signer(ctx, user.Id); err != nil {
			zap.L().Error("Unable to create identity", zap.String("user_id", user.Id), zap.Error(err))
			failed++
			continue
		}
		created++
	}

	if failed > 0 {
		zap.L().Warn("Identity setup completed with some failures",
			zap.Int("identities_created", created),
			zap.Int("failed", failed))
	} else {
		zap.L().Info("Identity setup completed successfully", zap.Int("identities_created", created))
	}
}

// requestCredentials issues a Known Customer Credential to every user that
// holds none
func requestCredentials(ctx context.Context, services *common.Services, country string) {
	users, err := services.DbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}

	var issued, failed int
	for _, user := range users {
		if len(user.Credentials) > 0 {
			continue
		}
		if _, err := services.Wallet.RequestCredential(ctx, user.Id, country); err != nil {
			zap.L().Error("Unable to obtain credential", zap.String("user_id", user.Id), zap.Error(err))
			failed++
			continue
		}
		issued++
	}
	zap.L().Info("Credential setup completed",
		zap.String("country", country),
		zap.Int("issued", issued),
		zap.Int("failed", failed))
}

func runInit(ctx context.Context, services *common.Services) {
	zap.L().Info("Initializing database, ledger and offering cache")

	copied, err := services.SyncLedgerUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to sync users to ledger", zap.Error(err))
	}
	zap.L().Info("Ledger users synced", zap.Int("copied", copied))

	prepareIdentities(ctx, services)

	if err := services.Offerings.InvalidateAll(); err != nil {
		zap.L().Warn("Failed to clear offering cache", zap.Error(err))
	}
	if err := services.Offerings.RefreshAll(ctx, services.Directory.Providers()); err != nil {
		zap.L().Warn("Some providers could not be reached", zap.Error(err))
	}

	zap.L().Info("Initialization complete")
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Sync ledger users and refresh the offering cache as well")
	credentialsFlag := flag.Bool("credentials", false, "Request a Known Customer Credential (CREDENTIAL_COUNTRY) for users without one")
	flag.Parse()

	// Initialize services at top level
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *initFlag {
		runInit(ctx, services)
	} else {
		prepareIdentities(ctx, services)
	}

	if *credentialsFlag {
		requestCredentials(ctx, services, cfg.Credentials.Country)
	}
}
