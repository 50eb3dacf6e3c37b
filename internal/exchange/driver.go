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

package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-exchange-go/internal/credentials"
	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/metrics"
	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/pfi"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultCloseReason = "Canceled by customer"

var (
	ErrOfferingRequirementsNotMet = fmt.Errorf("%w: offering requirements not met", models.ErrProtocolViolation)
	ErrOrderProcessing            = errors.New("order processing failed")
)

// QuoteRequest is what the holder asks a provider for
type QuoteRequest struct {
	Offering      models.Offering
	PayinAmount   string
	PayinMethod   string // defaults to the offering's first payin method
	PayoutMethod  string // defaults to the offering's first payout method
	PayinDetails  map[string]any
	PayoutDetails map[string]any
	Credentials   []string // VC JWTs held by the signer
}

// Settlement is the result of polling a placed order
type Settlement struct {
	LastStatus *models.Message
	Close      *models.Message
	Outcome    Outcome
}

// Driver runs the RFQ -> Quote -> Order -> OrderStatus -> Close protocol
// against provider services.
type Driver struct {
	transport pfi.Transport
	backoff   Backoff
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

func NewDriver(transport pfi.Transport, backoff Backoff) *Driver {
	return &Driver{
		transport: transport,
		backoff:   backoff,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// SubmitRequestForQuote builds, checks, signs and sends an RFQ for the
// offering. The RFQ id is the exchange id; the quote arrives later through
// PollForQuote.
func (d *Driver) SubmitRequestForQuote(ctx context.Context, req QuoteRequest, signer identity.Signer) (*models.Message, error) {
	offering := req.Offering

	amount, err := decimal.NewFromString(req.PayinAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payin amount %q", ErrOfferingRequirementsNotMet, req.PayinAmount)
	}

	payinKind := req.PayinMethod
	if payinKind == "" && len(offering.Data.Payin.Methods) > 0 {
		payinKind = offering.Data.Payin.Methods[0].Kind
	}
	payoutKind := req.PayoutMethod
	if payoutKind == "" && len(offering.Data.Payout.Methods) > 0 {
		payoutKind = offering.Data.Payout.Methods[0].Kind
	}

	claims := credentials.Select(req.Credentials, offering.Data.RequiredClaims)

	id := models.NewMessageID(models.KindRFQ)
	rfq := models.Message{
		Metadata: models.MessageMetadata{
			From:       signer.DID(),
			To:         offering.ProviderDID(),
			Kind:       models.KindRFQ,
			ID:         id,
			ExchangeID: id,
			Protocol:   models.ProtocolVersion,
			CreatedAt:  d.now().UTC(),
		},
		RFQ: &models.RFQData{
			OfferingID: offering.Metadata.ID,
			Payin:      models.SelectedPayinMethod{Kind: payinKind, Amount: amount},
			Payout:     models.SelectedPayoutMethod{Kind: payoutKind},
			Claims:     claims,
		},
		PrivateData: &models.RFQPrivateData{
			Payin:  models.PaymentDetails{PaymentDetails: req.PayinDetails},
			Payout: models.PaymentDetails{PaymentDetails: req.PayoutDetails},
		},
	}

	if err := VerifyOfferingRequirements(rfq, offering); err != nil {
		return nil, err
	}
	if err := SignMessage(&rfq, signer); err != nil {
		return nil, err
	}
	if err := d.transport.CreateExchange(ctx, rfq); err != nil {
		return nil, fmt.Errorf("unable to create exchange: %w", err)
	}

	zap.L().Info("RFQ submitted",
		zap.String("exchange_id", id),
		zap.String("provider", rfq.Metadata.To),
		zap.String("offering_id", offering.Metadata.ID),
		zap.String("amount", amount.String()))
	return &rfq, nil
}

// VerifyOfferingRequirements checks an RFQ against the offering it targets
func VerifyOfferingRequirements(rfq models.Message, offering models.Offering) error {
	if rfq.RFQ == nil {
		return fmt.Errorf("%w: message is not an rfq", ErrOfferingRequirementsNotMet)
	}
	data := rfq.RFQ

	if data.OfferingID != offering.Metadata.ID {
		return fmt.Errorf("%w: rfq targets offering %s, not %s", ErrOfferingRequirementsNotMet, data.OfferingID, offering.Metadata.ID)
	}
	if rfq.Metadata.To != offering.ProviderDID() {
		return fmt.Errorf("%w: rfq addressed to %s, offering is from %s", ErrOfferingRequirementsNotMet, rfq.Metadata.To, offering.ProviderDID())
	}
	if !data.Payin.Amount.IsPositive() {
		return fmt.Errorf("%w: payin amount must be positive", ErrOfferingRequirementsNotMet)
	}
	if lo := offering.Data.Payin.Min; lo != nil && data.Payin.Amount.LessThan(*lo) {
		return fmt.Errorf("%w: payin amount %s below minimum %s", ErrOfferingRequirementsNotMet, data.Payin.Amount, lo)
	}
	if hi := offering.Data.Payin.Max; hi != nil && data.Payin.Amount.GreaterThan(*hi) {
		return fmt.Errorf("%w: payin amount %s above maximum %s", ErrOfferingRequirementsNotMet, data.Payin.Amount, hi)
	}
	if !offering.HasPayinMethod(data.Payin.Kind) {
		return fmt.Errorf("%w: payin method %q not offered", ErrOfferingRequirementsNotMet, data.Payin.Kind)
	}
	if !offering.HasPayoutMethod(data.Payout.Kind) {
		return fmt.Errorf("%w: payout method %q not offered", ErrOfferingRequirementsNotMet, data.Payout.Kind)
	}

	var private models.RFQPrivateData
	if rfq.PrivateData != nil {
		private = *rfq.PrivateData
	}
	if err := requiredDetails(offering.Data.Payin.Methods, data.Payin.Kind, private.Payin.PaymentDetails); err != nil {
		return fmt.Errorf("%w: payin %v", ErrOfferingRequirementsNotMet, err)
	}
	if err := requiredDetails(offering.Data.Payout.Methods, data.Payout.Kind, private.Payout.PaymentDetails); err != nil {
		return fmt.Errorf("%w: payout %v", ErrOfferingRequirementsNotMet, err)
	}

	if err := credentials.Satisfies(data.Claims, offering.Data.RequiredClaims); err != nil {
		return fmt.Errorf("%w: %v", ErrOfferingRequirementsNotMet, err)
	}
	return nil
}

// requiredDetails checks the "required" list of a method's payment details
// schema against the supplied details.
func requiredDetails(methods []models.PaymentMethod, kind string, details map[string]any) error {
	for _, m := range methods {
		if m.Kind != kind {
			continue
		}
		required, _ := m.RequiredPaymentDetails["required"].([]any)
		for _, r := range required {
			name, _ := r.(string)
			if name == "" {
				continue
			}
			if v, ok := details[name]; !ok || v == nil || v == "" {
				return fmt.Errorf("missing payment detail %q", name)
			}
		}
	}
	return nil
}

// poll calls fetch up to MaxAttempts times with backoff between attempts.
// Fetch errors are logged and count as an attempt. It reports whether fetch
// finished; running out of attempts is not an error.
func (d *Driver) poll(ctx context.Context, loop, exchangeID string, fetch func() (bool, error)) (bool, error) {
	for attempt := 0; attempt < d.backoff.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		metrics.PollAttempts.WithLabelValues(loop).Inc()
		done, err := fetch()
		if err != nil {
			zap.L().Warn("Poll attempt failed",
				zap.String("loop", loop),
				zap.String("exchange_id", exchangeID),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		} else if done {
			return true, nil
		}

		if attempt == d.backoff.MaxAttempts-1 {
			break
		}
		if err := d.sleep(ctx, d.backoff.Delay(attempt)); err != nil {
			return false, err
		}
	}

	zap.L().Info("Polling gave up",
		zap.String("loop", loop),
		zap.String("exchange_id", exchangeID),
		zap.Int("attempts", d.backoff.MaxAttempts))
	return false, nil
}

// PollForQuote waits for the provider to quote. It returns nil without error
// when the exchange is closed before a quote or attempts run out. A reply
// with a bad signature fails its attempt.
func (d *Driver) PollForQuote(ctx context.Context, providerDID string, signer identity.Signer, exchangeID string) (*models.Message, error) {
	var quote *models.Message
	_, err := d.poll(ctx, "quote", exchangeID, func() (bool, error) {
		thread, err := d.transport.GetExchange(ctx, providerDID, signer, exchangeID)
		if err != nil {
			return false, err
		}
		if q := thread.Last(models.KindQuote); q != nil {
			if err := verifyReply(*q); err != nil {
				return false, err
			}
			quote = q
			return true, nil
		}
		if c := thread.Last(models.KindClose); c != nil {
			if err := verifyReply(*c); err != nil {
				return false, err
			}
			zap.L().Info("Exchange closed before quote",
				zap.String("exchange_id", exchangeID),
				zap.String("outcome", string(ClassifyCloseOutcome(c))))
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// PlaceOrder accepts a quote by sending a signed Order
func (d *Driver) PlaceOrder(ctx context.Context, signer identity.Signer, quote *models.Message) (*models.Message, error) {
	if quote == nil || quote.Kind() != models.KindQuote {
		return nil, fmt.Errorf("%w: an order requires a quote", models.ErrProtocolViolation)
	}

	order := models.Message{
		Metadata: models.MessageMetadata{
			To:         quote.Metadata.From,
			Kind:       models.KindOrder,
			ID:         models.NewMessageID(models.KindOrder),
			ExchangeID: quote.Metadata.ExchangeID,
			Protocol:   models.ProtocolVersion,
			CreatedAt:  d.now().UTC(),
		},
	}
	if err := SignMessage(&order, signer); err != nil {
		return nil, err
	}
	if err := d.transport.SubmitOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("unable to submit order: %w", err)
	}

	zap.L().Info("Order placed",
		zap.String("exchange_id", order.Metadata.ExchangeID),
		zap.String("provider", order.Metadata.To))
	return &order, nil
}

// PollOrderStatus follows a placed order until the provider closes the
// exchange. Each attempt reads the thread once, keeping the latest
// OrderStatus seen before the Close. It returns nil without error when
// attempts run out. A reply with a bad signature fails its attempt.
func (d *Driver) PollOrderStatus(ctx context.Context, order *models.Message, signer identity.Signer) (*Settlement, error) {
	if order == nil || order.Kind() != models.KindOrder {
		return nil, fmt.Errorf("%w: polling requires a placed order", models.ErrProtocolViolation)
	}
	exchangeID := order.Metadata.ExchangeID

	var settlement *Settlement
	_, err := d.poll(ctx, "order_status", exchangeID, func() (bool, error) {
		thread, err := d.transport.GetExchange(ctx, order.Metadata.To, signer, exchangeID)
		if err != nil {
			return false, err
		}

		var last *models.Message
		for i := range thread {
			switch thread[i].Kind() {
			case models.KindOrderStatus, models.KindClose:
				if err := verifyReply(thread[i]); err != nil {
					return false, err
				}
			}
			switch thread[i].Kind() {
			case models.KindOrderStatus:
				last = &thread[i]
			case models.KindClose:
				settlement = &Settlement{
					LastStatus: last,
					Close:      &thread[i],
					Outcome:    ClassifyCloseOutcome(&thread[i]),
				}
				return true, nil
			}
		}
		if last != nil {
			zap.L().Debug("Order status update",
				zap.String("exchange_id", exchangeID),
				zap.String("status", orderStatus(last)))
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// SubmitClose cancels the exchange on the holder's side
func (d *Driver) SubmitClose(ctx context.Context, signer identity.Signer, quote *models.Message, reason string) error {
	if quote == nil {
		return fmt.Errorf("%w: close requires a quote", models.ErrProtocolViolation)
	}
	if reason == "" {
		reason = DefaultCloseReason
	}

	closeMsg := models.Message{
		Metadata: models.MessageMetadata{
			To:         quote.Metadata.From,
			Kind:       models.KindClose,
			ID:         models.NewMessageID(models.KindClose),
			ExchangeID: quote.Metadata.ExchangeID,
			Protocol:   models.ProtocolVersion,
			CreatedAt:  d.now().UTC(),
		},
		Close: &models.CloseData{Reason: reason},
	}
	if err := SignMessage(&closeMsg, signer); err != nil {
		return err
	}
	if err := d.transport.SubmitClose(ctx, closeMsg); err != nil {
		return fmt.Errorf("unable to submit close: %w", err)
	}

	zap.L().Info("Exchange closed by holder",
		zap.String("exchange_id", closeMsg.Metadata.ExchangeID),
		zap.String("reason", reason))
	return nil
}

// ProcessOrder places the order and follows it to settlement in one pass.
// An order that was submitted stays submitted if polling then fails.
func (d *Driver) ProcessOrder(ctx context.Context, signer identity.Signer, quote *models.Message) (*Settlement, error) {
	order, err := d.PlaceOrder(ctx, signer, quote)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderProcessing, err)
	}
	settlement, err := d.PollOrderStatus(ctx, order, signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderProcessing, err)
	}
	return settlement, nil
}

func orderStatus(msg *models.Message) string {
	if msg == nil || msg.OrderStatus == nil {
		return ""
	}
	return msg.OrderStatus.OrderStatus
}
