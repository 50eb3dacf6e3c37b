package fees

import (
	"errors"
	"testing"

	"wallet-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTransactionFee(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name string
		req  FeeRequest
		want string
	}{
		{"same currency", FeeRequest{Amount: "100", PayinCurrency: "USD", PayoutCurrency: "USD", ExchangeRate: "1"}, "1.5"},
		{"cross currency", FeeRequest{Amount: "100", PayinCurrency: "USD", PayoutCurrency: "EUR", ExchangeRate: "0.9"}, "90.89"},
		{"fractional", FeeRequest{Amount: "0.5", PayinCurrency: "USD", PayoutCurrency: "USD", ExchangeRate: "1"}, "0.51"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.ComputeTransactionFee(tt.req)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputeTransactionFeeDeterministic(t *testing.T) {
	calc := NewCalculator()
	req := FeeRequest{Amount: "123.456", PayinCurrency: "USD", PayoutCurrency: "KES", ExchangeRate: "129.31"}

	first, err := calc.ComputeTransactionFee(req)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := calc.ComputeTransactionFee(req)
		require.NoError(t, err)
		require.True(t, got.Equal(first))
	}
}

func TestComputeTransactionFeeErrors(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name string
		req  FeeRequest
		want error
	}{
		{"zero amount", FeeRequest{Amount: "0", ExchangeRate: "1"}, ErrInvalidAmount},
		{"negative amount", FeeRequest{Amount: "-5", ExchangeRate: "1"}, ErrInvalidAmount},
		{"not a number", FeeRequest{Amount: "ten", ExchangeRate: "1"}, ErrInvalidAmount},
		{"zero rate", FeeRequest{Amount: "10", ExchangeRate: "0"}, ErrInvalidRate},
		{"negative rate", FeeRequest{Amount: "10", ExchangeRate: "-1"}, ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.ComputeTransactionFee(tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestComputePayoutAmount(t *testing.T) {
	offering := models.Offering{Data: models.OfferingData{PayoutUnitsPerPayinUnit: decimal.RequireFromString("0.925")}}

	got, err := ComputePayoutAmount("100", offering)
	require.NoError(t, err)
	assert.Equal(t, "92.50", got)

	got, err = ComputePayoutAmount("", offering)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = ComputePayoutAmount("abc", offering)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatSettlementTime(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{45, "45 minutes"},
		{125, "2 hours, 5 minutes"},
		{60, "1 hours, 0 minutes"},
		{0, "0"},
		{-3, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSettlementTime(tt.minutes))
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.5678", "1234.57"},
		{"0.123456", "0.1235"},
		{"0.00012345", "0.000123"},
		{"2", "2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
	}
}
