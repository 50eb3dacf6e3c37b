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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Ledger      LedgerConfig
	Formance    FormanceConfig
	Cache       CacheConfig
	PFI         PFIConfig
	Poll        PollConfig
	Notify      NotifyConfig
	Metrics     MetricsConfig
	Credentials CredentialsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// LedgerConfig selects where transaction records are kept: "sqlite" or "formance"
type LedgerConfig struct {
	Backend string
}

// FormanceConfig holds Formance Stack credentials
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// CacheConfig holds offering cache settings. An empty Dir keeps the cache in memory.
type CacheConfig struct {
	Dir           string
	ProvidersFile string
}

// PFIConfig holds provider transport settings
type PFIConfig struct {
	RequestTimeout time.Duration
	RateLimit      int // requests per second across all providers
}

// PollConfig holds the backoff policy shared by quote and order status polling
type PollConfig struct {
	InitialInterval   time.Duration
	Multiplier        float64
	MaxInterval       time.Duration
	MaxAttempts       int
	ExchangesInterval time.Duration
}

type NotifyConfig struct {
	WebhookURL string
}

type MetricsConfig struct {
	Addr string
}

// CredentialsConfig points at the Known Customer Credential issuer
type CredentialsConfig struct {
	IssuerURL string
	Country   string
}
