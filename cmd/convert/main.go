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
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"wallet-exchange-go/internal/common"
	"wallet-exchange-go/internal/config"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/wallet"

	"go.uber.org/zap"
)

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func parseDetails(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		zap.L().Fatal("Invalid payment details JSON", zap.String("details", raw), zap.Error(err))
	}
	return details
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "User email address (required)")
	fromFlag := flag.String("from", "", "Currency to pay in, used to pick a provider when --provider is not set")
	toFlag := flag.String("to", "", "Currency to receive, used to pick a provider when --provider is not set")
	providerFlag := flag.String("provider", "", "Provider DID")
	offeringFlag := flag.String("offering", "", "Offering ID (defaults to the provider's first matching offering)")
	amountFlag := flag.String("amount", "", "Amount to pay in (required)")
	payinFlag := flag.String("payin-details", "", "Payin payment details as JSON")
	payoutFlag := flag.String("payout-details", "", "Payout payment details as JSON")
	yesFlag := flag.Bool("yes", false, "Accept the quote without prompting")
	flag.Parse()

	if *emailFlag == "" || *amountFlag == "" {
		zap.L().Fatal("Required flags: --email and --amount")
	}
	if *providerFlag == "" && (*fromFlag == "" || *toFlag == "") {
		zap.L().Fatal("Either --provider or both --from and --to are required")
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

	providerDID := *providerFlag
	if providerDID == "" {
		provider, err := services.Wallet.FindProvider(*fromFlag, *toFlag)
		if err != nil {
			zap.L().Fatal("No provider for currency pair",
				zap.String("from", *fromFlag),
				zap.String("to", *toFlag),
				zap.Error(err))
		}
		providerDID = provider.DID
	}

	offeringID := *offeringFlag
	if offeringID == "" {
		offeringID = pickOffering(ctx, services, providerDID, *fromFlag, *toFlag)
	}

	preview, err := services.Wallet.Preview(ctx, providerDID, offeringID, *amountFlag)
	if err != nil {
		zap.L().Fatal("Failed to price conversion", zap.Error(err))
	}

	common.PrintHeader("CONVERSION PREVIEW", common.DefaultWidth)
	fmt.Printf("Pair:            %s\n", preview.Offering.Pair())
	fmt.Printf("You pay:         %s %s\n", preview.PayinAmount, preview.Offering.PayinCurrency())
	fmt.Printf("You receive:     %s %s\n", preview.PayoutAmount, preview.Offering.PayoutCurrency())
	fmt.Printf("Estimated fee:   %s %s\n", preview.Fee.StringFixed(2), preview.Offering.PayinCurrency())
	fmt.Printf("Settlement time: %s\n", preview.SettlementTime)
	common.PrintSeparator("=", common.DefaultWidth)

	req := wallet.ConvertRequest{
		UserId:        user.Id,
		ProviderDID:   providerDID,
		OfferingID:    offeringID,
		PayinAmount:   *amountFlag,
		PayinDetails:  parseDetails(*payinFlag),
		PayoutDetails: parseDetails(*payoutFlag),
		AcceptQuote: func(quote *models.Message) bool {
			if quote.Quote == nil {
				return false
			}
			fmt.Printf("\nQuote received, expires %s\n", quote.Quote.ExpiresAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Pay:     %s %s\n", quote.Quote.Payin.Total().String(), quote.Quote.Payin.CurrencyCode)
			fmt.Printf("  Receive: %s %s\n", quote.Quote.Payout.Total().String(), quote.Quote.Payout.CurrencyCode)
			if *yesFlag {
				return true
			}
			return confirm("Place order at this quote?")
		},
	}

	result, err := services.Wallet.Convert(ctx, req)
	if result != nil {
		fmt.Println()
		common.PrintHeader("CONVERSION RESULT", common.DefaultWidth)
		fmt.Printf("Reference:   %s\n", result.Record.Reference)
		if result.ExchangeID != "" {
			fmt.Printf("Exchange ID: %s\n", result.ExchangeID)
		}
		fmt.Printf("Status:      %s\n", result.Status)
		if result.Outcome != "" {
			fmt.Printf("Outcome:     %s\n", result.Outcome)
		}
		common.PrintSeparator("=", common.DefaultWidth)
	}
	if err != nil {
		zap.L().Fatal("Conversion failed", zap.Error(err))
	}
}

func pickOffering(ctx context.Context, services *common.Services, providerDID, from, to string) string {
	offerings, err := services.Offerings.GetOfferings(ctx, providerDID)
	if err != nil {
		zap.L().Fatal("Failed to load offerings", zap.String("provider", providerDID), zap.Error(err))
	}
	for _, o := range offerings {
		if (from == "" || strings.EqualFold(o.PayinCurrency(), from)) &&
			(to == "" || strings.EqualFold(o.PayoutCurrency(), to)) {
			return o.Metadata.ID
		}
	}
	zap.L().Fatal("Provider has no matching offering",
		zap.String("provider", providerDID),
		zap.String("from", from),
		zap.String("to", to))
	return ""
}
