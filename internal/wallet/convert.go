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

package wallet

import (
	"context"
	"errors"
	"fmt"

	"wallet-exchange-go/internal/exchange"
	"wallet-exchange-go/internal/fees"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ConvertRequest struct {
	UserId        string
	ProviderDID   string
	OfferingID    string
	PayinAmount   string
	PayinMethod   string
	PayoutMethod  string
	PayinDetails  map[string]any
	PayoutDetails map[string]any
	Credentials   []string // empty presents the user's stored credentials

	// AcceptQuote decides whether to order at the quoted price. Nil accepts.
	AcceptQuote func(quote *models.Message) bool
}

type ConvertResult struct {
	Record     models.TransactionRecord
	ExchangeID string
	Quote      *models.Message
	Settlement *exchange.Settlement
	Outcome    exchange.Outcome
	Status     models.TxStatus
}

// Preview is the holder-facing estimate shown before requesting a quote
type Preview struct {
	Offering       models.Offering
	PayinAmount    string
	PayoutAmount   string
	Fee            decimal.Decimal
	SettlementTime string
}

// Preview estimates payout and fee for an amount against an offering
func (s *Service) Preview(ctx context.Context, providerDID, offeringID, payinAmount string) (*Preview, error) {
	offering, err := s.offerings.Find(ctx, providerDID, offeringID)
	if err != nil {
		return nil, err
	}
	payout, err := fees.ComputePayoutAmount(payinAmount, *offering)
	if err != nil {
		return nil, err
	}
	fee, err := s.fees.ComputeTransactionFee(fees.FeeRequest{
		Amount:         payinAmount,
		PayinCurrency:  offering.PayinCurrency(),
		PayoutCurrency: offering.PayoutCurrency(),
		ExchangeRate:   offering.Data.PayoutUnitsPerPayinUnit.String(),
	})
	if err != nil {
		return nil, err
	}
	return &Preview{
		Offering:       *offering,
		PayinAmount:    payinAmount,
		PayoutAmount:   payout,
		Fee:            fee,
		SettlementTime: fees.FormatSettlementTime(offering.SettlementTime()),
	}, nil
}

// Convert runs one conversion. The returned result is non-nil whenever a
// record was created, including on failure, so callers can show the
// reference.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	signer, err := s.Signer(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	offering, err := s.offerings.Find(ctx, req.ProviderDID, req.OfferingID)
	if err != nil {
		return nil, err
	}
	creds := req.Credentials
	if len(creds) == 0 {
		user, err := s.users.GetUserById(ctx, req.UserId)
		if err != nil {
			return nil, err
		}
		creds = user.Credentials
	}
	amount, err := decimal.NewFromString(req.PayinAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", fees.ErrInvalidAmount, req.PayinAmount)
	}

	record, err := s.ledger.CreateRecord(ctx, req.UserId, models.TransactionRecord{
		From:              offering.PayinCurrency(),
		To:                offering.PayoutCurrency(),
		Type:              models.TxConvert,
		Amount:            amount,
		CurrencyCode:      offering.PayinCurrency(),
		Status:            models.TxProcessing,
		Narration:         fmt.Sprintf("Exchange %s", offering.Pair()),
		LiquidityProvider: offering.ProviderDID(),
	})
	if err != nil {
		return nil, err
	}
	result := &ConvertResult{Record: *record, Status: models.TxProcessing}

	rfq, err := s.driver.SubmitRequestForQuote(ctx, exchange.QuoteRequest{
		Offering:      *offering,
		PayinAmount:   req.PayinAmount,
		PayinMethod:   req.PayinMethod,
		PayoutMethod:  req.PayoutMethod,
		PayinDetails:  req.PayinDetails,
		PayoutDetails: req.PayoutDetails,
		Credentials:   creds,
	}, signer)
	if err != nil {
		return s.fail(ctx, req.UserId, result, exchange.OutcomeFailed, err)
	}
	result.ExchangeID = rfq.Metadata.ExchangeID

	quote, err := s.driver.PollForQuote(ctx, offering.ProviderDID(), signer, result.ExchangeID)
	if err != nil {
		return s.fail(ctx, req.UserId, result, exchange.OutcomeFailed, err)
	}
	if quote == nil {
		return s.fail(ctx, req.UserId, result, exchange.OutcomeFailed, ErrNoQuote)
	}
	result.Quote = quote

	if req.AcceptQuote != nil && !req.AcceptQuote(quote) {
		if err := s.driver.SubmitClose(ctx, signer, quote, exchange.DefaultCloseReason); err != nil {
			zap.L().Warn("Unable to close declined quote",
				zap.String("exchange_id", result.ExchangeID),
				zap.Error(err))
		}
		return s.fail(ctx, req.UserId, result, exchange.OutcomeCancelled, nil)
	}

	settlement, err := s.driver.ProcessOrder(ctx, signer, quote)
	if err != nil {
		return s.fail(ctx, req.UserId, result, exchange.OutcomeFailed, err)
	}
	if settlement == nil {
		// The order is placed but not closed yet; the record stays processing.
		zap.L().Warn("Order not settled before polling gave up",
			zap.String("user_id", req.UserId),
			zap.String("reference", record.Reference),
			zap.String("exchange_id", result.ExchangeID))
		return result, nil
	}
	result.Settlement = settlement

	if settlement.Outcome != exchange.OutcomeCompleted {
		return s.fail(ctx, req.UserId, result, settlement.Outcome, nil)
	}
	return s.complete(ctx, req.UserId, result)
}

func (s *Service) complete(ctx context.Context, userId string, result *ConvertResult) (*ConvertResult, error) {
	if err := s.ledger.UpdateStatus(ctx, userId, result.Record.Reference, models.TxCompleted); err != nil {
		return result, err
	}
	result.Status = models.TxCompleted
	result.Record.Status = models.TxCompleted
	result.Outcome = exchange.OutcomeCompleted
	metrics.ExchangeOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	s.publish(ctx, notify.Event{
		Type:        notify.ExchangeSuccess,
		UserId:      userId,
		Reference:   result.Record.Reference,
		ExchangeID:  result.ExchangeID,
		ProviderDID: result.Record.LiquidityProvider,
		Amount:      result.Record.Amount.String(),
		Currency:    result.Record.CurrencyCode,
		Message:     "Exchange completed",
	})

	zap.L().Info("Conversion completed",
		zap.String("user_id", userId),
		zap.String("reference", result.Record.Reference),
		zap.String("exchange_id", result.ExchangeID))
	return result, nil
}

// fail settles the record as failed. cause is returned wrapped when set;
// a declined or provider-closed exchange is not an error.
func (s *Service) fail(ctx context.Context, userId string, result *ConvertResult, outcome exchange.Outcome, cause error) (*ConvertResult, error) {
	result.Outcome = outcome
	metrics.ExchangeOutcomes.WithLabelValues(string(outcome)).Inc()

	// Record the failure even if the caller's context is gone.
	settleCtx := context.WithoutCancel(ctx)
	if err := s.ledger.UpdateStatus(settleCtx, userId, result.Record.Reference, models.TxFailed); err != nil {
		zap.L().Error("Unable to mark record failed",
			zap.String("user_id", userId),
			zap.String("reference", result.Record.Reference),
			zap.Error(err))
		cause = errors.Join(cause, err)
	} else {
		result.Status = models.TxFailed
		result.Record.Status = models.TxFailed
	}

	message := "Exchange failed"
	if outcome == exchange.OutcomeCancelled {
		message = "Exchange cancelled"
	}
	s.publish(settleCtx, notify.Event{
		Type:        notify.ExchangeFail,
		UserId:      userId,
		Reference:   result.Record.Reference,
		ExchangeID:  result.ExchangeID,
		ProviderDID: result.Record.LiquidityProvider,
		Amount:      result.Record.Amount.String(),
		Currency:    result.Record.CurrencyCode,
		Message:     message,
	})

	zap.L().Warn("Conversion did not complete",
		zap.String("user_id", userId),
		zap.String("reference", result.Record.Reference),
		zap.String("exchange_id", result.ExchangeID),
		zap.String("outcome", string(outcome)),
		zap.Error(cause))

	if cause != nil {
		return result, fmt.Errorf("conversion %s failed: %w", result.Record.Reference, cause)
	}
	return result, nil
}
