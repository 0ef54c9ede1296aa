package plot

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landplots/backend/internal/domain/shared"
)

func TestValidatePayment(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unknown mode", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(1), Mode: PaymentMode("BARTER"), Date: date})
		assert.Equal(t, []string{"Invalid payment mode: BARTER"}, r.Errors)
	})

	t.Run("valid cash payment", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(100), Mode: PaymentModeCash, Date: date})
		assert.True(t, r.Valid)
		assert.Empty(t, r.Errors)
		assert.NoError(t, r.Err())
	})

	t.Run("collects every failure in order", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{})
		assert.False(t, r.Valid)
		assert.Equal(t, []string{
			"Payment amount must be greater than 0",
			"Payment mode is required",
			"Payment date is required",
		}, r.Errors)
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(-5), Mode: PaymentModeUPI, Date: date})
		assert.Equal(t, []string{"Payment amount must be greater than 0"}, r.Errors)
	})

	t.Run("cheque needs a reference", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(1), Mode: PaymentModeCheque, Date: date})
		assert.Equal(t, []string{"Cheque number is required for cheque payments"}, r.Errors)
	})

	t.Run("rtgs needs a reference", func(t *testing.T) {
		r := ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(1), Mode: PaymentModeRTGS, Date: date})
		assert.Equal(t, []string{"RTGS reference is required for RTGS payments"}, r.Errors)

		r = ValidatePayment(PaymentInput{Amount: decimal.NewFromInt(1), Mode: PaymentModeRTGS, Date: date, Reference: "UTR1"})
		assert.True(t, r.Valid)
	})

	t.Run("err carries details", func(t *testing.T) {
		err := ValidatePayment(PaymentInput{Mode: PaymentModeCash, Date: date}).Err()
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_PAYMENT", de.Code)
		assert.Equal(t, []string{"Payment amount must be greater than 0"}, de.Details)
	})
}

func TestNewPaymentID(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	id := NewPaymentID(time.UnixMilli(1700000000000), rnd)
	assert.Regexp(t, regexp.MustCompile(`^PAY_1700000000000_[0-9a-z]{9}$`), id)

	other := NewPaymentID(time.UnixMilli(1700000000000), rnd)
	assert.NotEqual(t, id, other)
}

func TestFormatPaymentMode(t *testing.T) {
	assert.Equal(t, "RTGS", FormatPaymentMode(PaymentModeRTGS))
	assert.Equal(t, "Cheque", FormatPaymentMode(PaymentModeCheque))
	assert.Equal(t, "Cash", FormatPaymentMode(PaymentModeCash))
	assert.Equal(t, "Bank Transfer", FormatPaymentMode(PaymentModeBankTransfer))
	assert.Equal(t, "UPI", FormatPaymentMode(PaymentModeUPI))
	assert.Equal(t, "Card", FormatPaymentMode(PaymentModeCard))
	assert.Equal(t, "BARTER", FormatPaymentMode("BARTER"))
}

func TestPaymentFilters(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	payments := []Payment{
		{ID: "1", Date: day(1), Mode: PaymentModeCash},
		{ID: "2", Date: day(5), Mode: PaymentModeUPI},
		{ID: "3", Date: day(10), Mode: PaymentModeCash},
	}

	t.Run("date range is inclusive", func(t *testing.T) {
		got := FilterPaymentsByDateRange(payments, day(1), day(5))
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "2", got[1].ID)
	})

	t.Run("by mode", func(t *testing.T) {
		got := FilterPaymentsByMode(payments, PaymentModeCash)
		require.Len(t, got, 2)
		assert.Equal(t, "3", got[1].ID)
	})

	t.Run("pending clamps at zero", func(t *testing.T) {
		ps := []Payment{{Amount: decimal.NewFromInt(70)}, {Amount: decimal.NewFromInt(50)}}
		assert.True(t, PendingAmount(decimal.NewFromInt(100), ps).IsZero())
		assert.True(t, PendingAmount(decimal.NewFromInt(200), ps).Equal(decimal.NewFromInt(80)))
	})
}
