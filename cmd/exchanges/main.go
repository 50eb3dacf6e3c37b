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
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wallet-exchange-go/internal/aggregator"
	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"

	"go.uber.org/zap"
)

func printExchanges(email string, summaries []models.ExchangeSummary) {
	common.PrintHeader(fmt.Sprintf("EXCHANGES FOR %s", email), common.DefaultWidth)
	if len(summaries) == 0 {
		fmt.Println("No exchanges")
	}
	for i, s := range summaries {
		common.PrintExchange(s, i == len(summaries)-1)
	}
	common.PrintFooter(fmt.Sprintf("%d exchanges", len(summaries)), common.DefaultWidth)
}

func main() {
	emailFlag := flag.String("email", "", "Only watch this user's exchanges (default: all users with an identity)")
	onceFlag := flag.Bool("once", false, "Print one aggregation pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting exchange watcher")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var users []models.User
	if *emailFlag != "" {
		user, err := services.DbService.GetUserByEmail(ctx, *emailFlag)
		if err != nil {
			zap.L().Fatal("Failed to find user", zap.String("email", *emailFlag), zap.Error(err))
		}
		users = []models.User{*user}
	} else {
		all, err := services.DbService.GetUsers(ctx)
		if err != nil {
			zap.L().Fatal("Failed to read users", zap.Error(err))
		}
		for _, u := range all {
			if u.DID != "" {
				users = append(users, u)
			}
		}
	}

	providers := services.Directory.Providers()

	if *onceFlag {
		for _, u := range users {
			signer, err := services.Wallet.Signer(ctx, u.Id)
			if err != nil {
				zap.L().Error("Unable to load identity", zap.String("user_id", u.Id), zap.Error(err))
				continue
			}
			summaries, err := services.Aggregator.ListAllExchanges(ctx, signer, providers)
			if err != nil {
				zap.L().Error("Aggregation failed", zap.String("user_id", u.Id), zap.Error(err))
				continue
			}
			printExchanges(u.Email, summaries)
		}
		return
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zap.L().Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	// Start one poller per user.
	pollers := make([]*aggregator.Poller, 0, len(users))
	for _, u := range users {
		signer, err := services.Wallet.Signer(ctx, u.Id)
		if err != nil {
			zap.L().Error("Failed to load identity for user",
				zap.String("user_id", u.Id),
				zap.String("email", u.Email),
				zap.Error(err))
			continue
		}
		email := u.Email
		p := services.Aggregator.StartPolling(ctx, signer, providers, cfg.Poll.ExchangesInterval,
			func(summaries []models.ExchangeSummary) {
				printExchanges(email, summaries)
			})
		pollers = append(pollers, p)
	}

	if len(pollers) == 0 {
		zap.L().Fatal("No pollers started successfully")
	}

	zap.L().Info("All pollers running",
		zap.Int("active", len(pollers)),
		zap.Int("users", len(users)))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping all pollers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, p := range pollers {
			wg.Add(1)
			go func(p *aggregator.Poller) {
				defer wg.Done()
				p.Stop()
			}(p)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("All pollers stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
}
