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
	"regexp"
	"strings"

	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"
	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type newUser struct {
	name  string
	email string
}

func (u newUser) validate() error {
	var errs []error
	switch {
	case u.name == "":
		errs = append(errs, fmt.Errorf("name cannot be empty"))
	case len(u.name) < 2:
		errs = append(errs, fmt.Errorf("name must be at least 2 characters"))
	}
	switch {
	case u.email == "":
		errs = append(errs, fmt.Errorf("email cannot be empty"))
	case !emailRegex.MatchString(u.email):
		errs = append(errs, fmt.Errorf("invalid email format: %s", u.email))
	}
	return errors.Join(errs...)
}

// reachableProviders counts directory providers whose offerings load, so a
// new holder knows whether conversions will work right away.
func reachableProviders(ctx context.Context, services *common.Services) int {
	reachable := 0
	for _, p := range services.Directory.Providers() {
		if _, err := services.Offerings.GetOfferings(ctx, p.DID); err != nil {
			zap.L().Warn("Provider unreachable", zap.String("provider", p.Name), zap.Error(err))
			continue
		}
		reachable++
	}
	return reachable
}

func printUser(user *models.User, signer identity.Signer, credentialed bool, reachable, total int) {
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:        %s\n", user.Id)
	fmt.Printf("Name:      %s\n", user.Name)
	fmt.Printf("Email:     %s\n", user.Email)
	fmt.Printf("DID:       %s\n", signer.DID())
	fmt.Printf("KCC:       %t\n", credentialed)
	fmt.Printf("Providers: %d of %d reachable\n", reachable, total)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	countryFlag := flag.String("country", "", "Request a Known Customer Credential for this country of residence (e.g. US)")
	skipCheckFlag := flag.Bool("skip-provider-check", false, "Do not contact providers after creating the user")
	flag.Parse()

	input := newUser{name: strings.TrimSpace(*nameFlag), email: strings.TrimSpace(*emailFlag)}
	if err := input.validate(); err != nil {
		zap.L().Fatal("Invalid user", zap.Error(err))
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

	user, err := services.CreateUser(ctx, uuid.New().String(), input.name, input.email)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			zap.L().Fatal("User already exists with this email", zap.String("email", input.email))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	signer, err := services.Wallet.Signer(ctx, user.Id)
	if err != nil {
		zap.L().Fatal("User created but identity setup failed", zap.String("id", user.Id), zap.Error(err))
	}

	credentialed := false
	if country := strings.TrimSpace(*countryFlag); country != "" {
		if _, err := services.Wallet.RequestCredential(ctx, user.Id, country); err != nil {
			zap.L().Error("Credential request failed", zap.String("id", user.Id), zap.Error(err))
		} else {
			credentialed = true
		}
	}

	total := len(services.Directory.Providers())
	reachable := total
	if !*skipCheckFlag {
		reachable = reachableProviders(ctx, services)
	}

	printUser(user, signer, credentialed, reachable, total)
	zap.L().Info("User created successfully", zap.String("id", user.Id), zap.String("did", signer.DID()))
}
