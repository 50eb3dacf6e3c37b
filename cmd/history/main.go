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
	"fmt"

	"wallet-exchange-go/internal/api"
	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Only show this user's history")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	ledger := api.NewLedgerService(services.Ledger)
	if err := ledger.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Ledger is not reachable", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, services.DbService, *emailFlag, zap.L())
	if err != nil {
		zap.L().Fatal("Failed to load users", zap.Error(err))
	}

	for _, u := range users {
		records, err := ledger.History(ctx, u.Id)
		if err != nil {
			zap.L().Error("Failed to read history", zap.String("user_id", u.Id), zap.Error(err))
			continue
		}

		common.PrintHeader(fmt.Sprintf("%s <%s>", u.Name, u.Email), common.DefaultWidth)
		if len(records) == 0 {
			fmt.Println("No transactions")
		}
		for i, r := range records {
			common.PrintRecord(r, i == len(records)-1)
		}
		common.PrintFooter(fmt.Sprintf("%d transactions", len(records)), common.DefaultWidth)
	}
}
