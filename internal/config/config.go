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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"wallet-exchange-go/internal/models"
)

const (
	LedgerSQLite   = "sqlite"
	LedgerFormance = "formance"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("PFI_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	initialInterval, err := getEnvDuration("POLL_INITIAL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	maxInterval, err := getEnvDuration("POLL_MAX_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	exchangesInterval, err := getEnvDuration("EXCHANGES_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	multiplier, err := getEnvFloat("POLL_MULTIPLIER", 1.5)
	if err != nil {
		return nil, err
	}

	backend := getEnvString("LEDGER_BACKEND", LedgerSQLite)
	if backend != LedgerSQLite && backend != LedgerFormance {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: must be %s or %s", backend, LedgerSQLite, LedgerFormance)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "wallet.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  connMaxLifetime,
			ConnMaxIdleTime:  connMaxIdleTime,
			PingTimeout:      pingTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Ledger: models.LedgerConfig{
			Backend: backend,
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "wallet-exchange"),
		},
		Cache: models.CacheConfig{
			Dir:           getEnvString("CACHE_DIR", ""),
			ProvidersFile: getEnvString("PROVIDERS_FILE", "providers.yaml"),
		},
		PFI: models.PFIConfig{
			RequestTimeout: requestTimeout,
			RateLimit:      getEnvInt("PFI_RATE_LIMIT", 0),
		},
		Poll: models.PollConfig{
			InitialInterval:   initialInterval,
			Multiplier:        multiplier,
			MaxInterval:       maxInterval,
			MaxAttempts:       getEnvInt("POLL_MAX_ATTEMPTS", 30),
			ExchangesInterval: exchangesInterval,
		},
		Notify: models.NotifyConfig{
			WebhookURL: getEnvString("NOTIFY_WEBHOOK_URL", ""),
		},
		Metrics: models.MetricsConfig{
			Addr: getEnvString("METRICS_ADDR", ""),
		},
		Credentials: models.CredentialsConfig{
			IssuerURL: getEnvString("CREDENTIAL_ISSUER_URL", "https://mock-idv.tbddev.org"),
			Country:   getEnvString("CREDENTIAL_COUNTRY", "US"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
