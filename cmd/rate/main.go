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

	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "User email address (required)")
	providerFlag := flag.String("provider", "", "Provider DID (required)")
	ratingFlag := flag.Int("rating", 0, "Rating from 1 to 5 (required)")
	flag.Parse()

	if *emailFlag == "" || *providerFlag == "" || *ratingFlag == 0 {
		zap.L().Fatal("Required flags: --email, --provider and --rating")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.GetUserByEmail(ctx, *emailFlag)
	if err != nil {
		zap.L().Fatal("Failed to find user", zap.String("email", *emailFlag), zap.Error(err))
	}

	rep, err := services.Wallet.RateProvider(ctx, user.Id, *providerFlag, *ratingFlag)
	if err != nil {
		zap.L().Fatal("Failed to rate provider", zap.Error(err))
	}

	common.PrintHeader("PROVIDER RATED", common.DefaultWidth)
	fmt.Printf("Provider:       %s\n", rep.ProviderDID)
	fmt.Printf("Average rating: %s\n", rep.AverageRating.StringFixed(2))
	fmt.Printf("Total ratings:  %d\n", rep.TotalRatings)
	common.PrintSeparator("=", common.DefaultWidth)
}
