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
	"strings"

	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/offerings"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	payinFlag := flag.String("payin", "", "Only show offerings paying in this currency")
	payoutFlag := flag.String("payout", "", "Only show offerings paying out this currency")
	refreshFlag := flag.Bool("refresh", false, "Refetch offerings instead of using the cache")
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

	if *refreshFlag {
		if err := services.Offerings.InvalidateAll(); err != nil {
			zap.L().Warn("Failed to clear offering cache", zap.Error(err))
		}
	}

	listings, err := services.Wallet.ListProviders(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list providers", zap.Error(err))
	}

	payin := strings.ToUpper(*payinFlag)
	payout := strings.ToUpper(*payoutFlag)

	var shown []models.ProviderListing
	for _, l := range listings {
		l.Offerings = offerings.MatchingPairs(l.Offerings, payin, payout)
		if (payin != "" || payout != "") && len(l.Offerings) == 0 {
			continue
		}
		shown = append(shown, l)
	}

	common.PrintHeader("LIQUIDITY PROVIDERS", common.DefaultWidth)
	if len(shown) == 0 {
		fmt.Println("No providers match")
	}
	for i, l := range shown {
		common.PrintProvider(l, i == len(shown)-1)
	}
	common.PrintFooter(fmt.Sprintf("%d of %d providers", len(shown), len(listings)), common.DefaultWidth)
}
