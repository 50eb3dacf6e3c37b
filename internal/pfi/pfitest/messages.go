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

package pfitest

import (
	"time"

	"wallet-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

func reply(rfq models.Message, kind models.MessageKind) models.Message {
	return models.Message{
		Metadata: models.MessageMetadata{
			From:       rfq.Metadata.To,
			To:         rfq.Metadata.From,
			Kind:       kind,
			ID:         models.NewMessageID(kind),
			ExchangeID: rfq.Metadata.ExchangeID,
			Protocol:   models.ProtocolVersion,
			CreatedAt:  time.Now().UTC(),
		},
	}
}

// Quote answers rfq. An empty fee leaves the fee unset.
func Quote(rfq models.Message, payinCurrency, payoutCurrency, payinAmount, fee, payoutAmount string) models.Message {
	m := reply(rfq, models.KindQuote)
	m.Quote = &models.QuoteData{
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
		Payin:     models.QuoteDetails{CurrencyCode: payinCurrency, Amount: decimal.RequireFromString(payinAmount)},
		Payout:    models.QuoteDetails{CurrencyCode: payoutCurrency, Amount: decimal.RequireFromString(payoutAmount)},
	}
	if fee != "" {
		f := decimal.RequireFromString(fee)
		m.Quote.Payin.Fee = &f
	}
	return m
}

func OrderStatus(rfq models.Message, status string) models.Message {
	m := reply(rfq, models.KindOrderStatus)
	m.OrderStatus = &models.OrderStatusData{OrderStatus: status}
	return m
}

func Close(rfq models.Message, reason string) models.Message {
	m := reply(rfq, models.KindClose)
	m.Close = &models.CloseData{Reason: reason}
	return m
}
