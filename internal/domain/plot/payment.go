package plot

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/shared"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// PaymentInput carries the fields a caller supplies for a new payment
type PaymentInput struct {
	Amount        decimal.Decimal
	Mode          PaymentMode
	Date          time.Time
	Reference     string
	Remarks       string
	Description   string
	ReceiptNumber string
	PlotNumber    string
	SurveyNumber  string
	CustomerName  string
	PlotTotalCost decimal.Decimal
}

// ValidationResult lists every rule a payment input broke
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidatePayment checks a payment input and collects all failures in a
// fixed order.
func ValidatePayment(in PaymentInput) ValidationResult {
	errs := make([]string, 0)

	if !in.Amount.IsPositive() {
		errs = append(errs, "Payment amount must be greater than 0")
	}
	if in.Mode == "" {
		errs = append(errs, "Payment mode is required")
	} else if !in.Mode.IsValid() {
		errs = append(errs, "Invalid payment mode: "+string(in.Mode))
	}
	if in.Date.IsZero() {
		errs = append(errs, "Payment date is required")
	}
	if in.Mode == PaymentModeCheque && in.Reference == "" {
		errs = append(errs, "Cheque number is required for cheque payments")
	}
	if in.Mode == PaymentModeRTGS && in.Reference == "" {
		errs = append(errs, "RTGS reference is required for RTGS payments")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Err converts a failed result into an INVALID_PAYMENT domain error
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return shared.NewDomainErrorWithDetails("INVALID_PAYMENT", r.Errors[0], r.Errors)
}

// NewPayment assigns an id to a validated input
func NewPayment(id string, in PaymentInput) Payment {
	return Payment{
		ID:            id,
		Amount:        in.Amount,
		Mode:          in.Mode,
		Date:          in.Date,
		Reference:     in.Reference,
		Remarks:       in.Remarks,
		Description:   in.Description,
		ReceiptNumber: in.ReceiptNumber,
		PlotNumber:    in.PlotNumber,
		SurveyNumber:  in.SurveyNumber,
		CustomerName:  in.CustomerName,
		PlotTotalCost: in.PlotTotalCost,
	}
}

// NewPaymentID returns an id of the form PAY_<unix ms>_<9 base-36 chars>
func NewPaymentID(now time.Time, rnd *rand.Rand) string {
	return fmt.Sprintf("PAY_%d_%s", now.UnixMilli(), randomBase36(rnd, 9))
}

func randomBase36(rnd *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		if rnd != nil {
			b[i] = base36[rnd.IntN(len(base36))]
		} else {
			b[i] = base36[rand.IntN(len(base36))]
		}
	}
	return string(b)
}

// FormatPaymentMode returns the display label of a payment mode
func FormatPaymentMode(mode PaymentMode) string {
	switch mode {
	case PaymentModeRTGS:
		return "RTGS"
	case PaymentModeCheque:
		return "Cheque"
	case PaymentModeCash:
		return "Cash"
	case PaymentModeBankTransfer:
		return "Bank Transfer"
	case PaymentModeUPI:
		return "UPI"
	case PaymentModeCard:
		return "Card"
	default:
		return string(mode)
	}
}

// FilterPaymentsByDateRange keeps payments dated within [start, end]
func FilterPaymentsByDateRange(payments []Payment, start, end time.Time) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, pm := range payments {
		if !pm.Date.Before(start) && !pm.Date.After(end) {
			out = append(out, pm)
		}
	}
	return out
}

// FilterPaymentsByMode keeps payments made with mode
func FilterPaymentsByMode(payments []Payment, mode PaymentMode) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, pm := range payments {
		if pm.Mode == mode {
			out = append(out, pm)
		}
	}
	return out
}
