package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentapp "github.com/landplots/backend/internal/application/payment"
	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

func newPaymentEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	h := NewPaymentHandler(env.payments)
	env.engine.GET("/plots/:id/payments", h.ForPlot)
	env.engine.POST("/plots/:id/payments", h.Add)
	env.engine.GET("/payments", h.List)
	env.engine.POST("/payments/validate", h.Validate)
	return env
}

func TestPaymentHandler_ForPlot(t *testing.T) {
	env := newPaymentEnv(t)

	w := env.do(t, http.MethodGet, plotPath(soldID, "/payments"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ledger paymentapp.PlotPaymentsResponse
	decode(t, w, &ledger)
	assert.Equal(t, soldID, ledger.PlotID)
	assert.Equal(t, "500000", ledger.TotalCost.String())
	assert.Equal(t, "100000", ledger.TotalPaid.String())
	assert.Equal(t, "400000", ledger.PendingAmount.String())
	require.Len(t, ledger.Payments, 1)
	assert.Equal(t, "UPI", ledger.Payments[0].Mode)

	w = env.do(t, http.MethodGet, plotPath("missing", "/payments"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_Add(t *testing.T) {
	env := newPaymentEnv(t)

	w := env.do(t, http.MethodPost, plotPath(bookedID, "/payments"), map[string]any{
		"amount":         "50000",
		"mode":           "CHEQUE",
		"date":           "2025-03-01T00:00:00Z",
		"reference":      "CHQ-001122",
		"receipt_number": "R-17",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var pm paymentapp.PaymentResponse
	decode(t, w, &pm)
	assert.NotEmpty(t, pm.ID)
	assert.Equal(t, bookedID, pm.PlotID)
	assert.Equal(t, "5", pm.PlotNumber)
	assert.Equal(t, "152/2", pm.SurveyNumber)
	assert.Equal(t, "Sunita Deshmukh", pm.CustomerName)

	stored, err := env.plots.PlotByID(bookedID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, "250000", stored.PendingAmount().String())
}

func TestPaymentHandler_Add_Rejected(t *testing.T) {
	env := newPaymentEnv(t)

	t.Run("every failed rule is listed", func(t *testing.T) {
		w := env.do(t, http.MethodPost, plotPath(bookedID, "/payments"), map[string]any{
			"amount": "0",
			"mode":   "RTGS",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeInvalidPayment, resp.Error.Code)
		assert.Equal(t, "Payment amount must be greater than 0", resp.Error.Message)
		msgs := make([]string, len(resp.Error.Details))
		for i, d := range resp.Error.Details {
			msgs[i] = d.Message
		}
		assert.Equal(t, []string{
			"Payment amount must be greater than 0",
			"Payment date is required",
			"RTGS reference is required for RTGS payments",
		}, msgs)

		stored, _ := env.plots.PlotByID(bookedID)
		assert.Empty(t, stored.Payments)
	})

	t.Run("unknown plot", func(t *testing.T) {
		w := env.do(t, http.MethodPost, plotPath("nope", "/payments"), map[string]any{
			"amount": "100", "mode": "CASH", "date": "2025-03-01T00:00:00Z",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		w := env.do(t, http.MethodPost, plotPath(bookedID, "/payments"), map[string]any{
			"amount": "100", "mode": "BARTER", "date": "2025-03-01T00:00:00Z",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidPayment, errorCode(t, w))
	})

	t.Run("mode is case-insensitive", func(t *testing.T) {
		w := env.do(t, http.MethodPost, plotPath(bookedID, "/payments"), map[string]any{
			"amount": "100", "mode": "upi", "date": "2025-03-01T00:00:00Z",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"mode":"UPI"`)
	})
}

func TestPaymentHandler_Validate(t *testing.T) {
	env := newPaymentEnv(t)

	w := env.do(t, http.MethodPost, "/payments/validate", map[string]any{"amount": "10", "mode": "CHEQUE"})
	require.Equal(t, http.StatusOK, w.Code)

	var result plot.ValidationResult
	decode(t, w, &result)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Cheque number is required for cheque payments")

	w = env.do(t, http.MethodPost, "/payments/validate", map[string]any{
		"amount": "10", "mode": "CASH", "date": "2025-03-01T00:00:00Z",
	})
	decode(t, w, &result)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestPaymentHandler_List(t *testing.T) {
	env := newPaymentEnv(t)
	_, err := env.payments.AddPayment(t.Context(), bookedID, plot.PaymentInput{
		Amount: decimalFromString(t, "25000"),
		Mode:   plot.PaymentModeCash,
		Date:   testNow,
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantTotal string
	}{
		{"all", "", 2, "125000"},
		{"by mode", "?mode=UPI", 1, "100000"},
		{"by mode, any case", "?mode=cash", 1, "25000"},
		{"from date", "?from=2025-01-01", 1, "25000"},
		{"to date covers the whole day", "?to=2023-04-12", 1, "100000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/payments"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var list paymentapp.ListResponse
			decode(t, w, &list)
			assert.Equal(t, tt.wantCount, list.Count)
			assert.Equal(t, tt.wantTotal, list.Total.String())
		})
	}

	t.Run("newest first", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/payments", nil)
		var list paymentapp.ListResponse
		decode(t, w, &list)
		require.Len(t, list.Payments, 2)
		assert.Equal(t, bookedID, list.Payments[0].PlotID)
		assert.Equal(t, "Ramesh Patil", list.Payments[1].CustomerName)
	})

	t.Run("bad date", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/payments?from=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/payments?mode=BARTER", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidationFormat, errorCode(t, w))
	})
}
