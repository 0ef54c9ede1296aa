package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// AddPaymentRequest represents a request to record a payment. Validation of
// the business rules happens in the service so all failures are reported
// together.
type AddPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Mode          string          `json:"mode" binding:"max=20"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference" binding:"max=100"`
	Remarks       string          `json:"remarks" binding:"max=500"`
	Description   string          `json:"description" binding:"max=500"`
	ReceiptNumber string          `json:"receipt_number" binding:"max=100"`
	CustomerName  string          `json:"customer_name" binding:"max=200"`
}

// ToInput converts the request into domain input. A mode that does not
// parse is passed through as sent so validation reports it with the rest.
func (r AddPaymentRequest) ToInput() plot.PaymentInput {
	mode, err := plot.ParsePaymentMode(r.Mode)
	if err != nil {
		mode = plot.PaymentMode(r.Mode)
	}
	return plot.PaymentInput{
		Amount:        r.Amount,
		Mode:          mode,
		Date:          r.Date,
		Reference:     r.Reference,
		Remarks:       r.Remarks,
		Description:   r.Description,
		ReceiptNumber: r.ReceiptNumber,
		CustomerName:  r.CustomerName,
	}
}

// ListQuery represents query filters for the payment listing
type ListQuery struct {
	Mode string `form:"mode" binding:"max=20"`
	From string `form:"from"`
	To   string `form:"to"`
}

// ToFilter parses the date bounds. Dates are YYYY-MM-DD or RFC 3339; a bare
// "to" date covers the whole day.
func (q ListQuery) ToFilter() (ListFilter, error) {
	var f ListFilter
	var err error
	if q.Mode != "" {
		if f.Mode, err = plot.ParsePaymentMode(q.Mode); err != nil {
			return f, err
		}
	}
	if q.From != "" {
		if f.From, err = parseDate(q.From, false); err != nil {
			return f, err
		}
	}
	if q.To != "" {
		if f.To, err = parseDate(q.To, true); err != nil {
			return f, err
		}
	}
	return f, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            string          `json:"id"`
	PlotID        string          `json:"plot_id"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          string          `json:"mode"`
	ModeLabel     string          `json:"mode_label"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	Description   string          `json:"description,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	PlotNumber    string          `json:"plot_number"`
	SurveyNumber  string          `json:"survey_number"`
	CustomerName  string          `json:"customer_name"`
}

// ToPaymentResponse converts a payment of a plot
func ToPaymentResponse(plotID string, pm plot.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            pm.ID,
		PlotID:        plotID,
		Amount:        pm.Amount,
		Mode:          string(pm.Mode),
		ModeLabel:     plot.FormatPaymentMode(pm.Mode),
		Date:          pm.Date,
		Reference:     pm.Reference,
		Remarks:       pm.Remarks,
		Description:   pm.Description,
		ReceiptNumber: pm.ReceiptNumber,
		PlotNumber:    pm.PlotNumber,
		SurveyNumber:  pm.SurveyNumber,
		CustomerName:  pm.CustomerName,
	}
}

// ListResponse is the payment listing with totals
type ListResponse struct {
	Payments []PaymentResponse          `json:"payments"`
	Count    int                        `json:"count"`
	Total    decimal.Decimal            `json:"total"`
	ByMode   map[string]decimal.Decimal `json:"by_mode"`
}

// ToListResponse converts a summary
func ToListResponse(s ListSummary) ListResponse {
	resp := ListResponse{
		Payments: make([]PaymentResponse, len(s.Payments)),
		Count:    len(s.Payments),
		Total:    s.Total,
		ByMode:   make(map[string]decimal.Decimal, len(s.ByMode)),
	}
	for i, pp := range s.Payments {
		resp.Payments[i] = ToPaymentResponse(pp.PlotID, pp.Payment)
	}
	for mode, total := range s.ByMode {
		resp.ByMode[string(mode)] = total
	}
	return resp
}

// PlotPaymentsResponse is the ledger of one plot
type PlotPaymentsResponse struct {
	PlotID        string            `json:"plot_id"`
	TotalCost     decimal.Decimal   `json:"total_cost"`
	TotalPaid     decimal.Decimal   `json:"total_paid"`
	PendingAmount decimal.Decimal   `json:"pending_amount"`
	Payments      []PaymentResponse `json:"payments"`
}

// ToPlotPaymentsResponse converts a plot ledger
func ToPlotPaymentsResponse(pp *PlotPayments) PlotPaymentsResponse {
	resp := PlotPaymentsResponse{
		PlotID:        pp.PlotID,
		TotalCost:     pp.TotalCost,
		TotalPaid:     pp.TotalPaid,
		PendingAmount: pp.PendingAmount,
		Payments:      make([]PaymentResponse, len(pp.Payments)),
	}
	for i, pm := range pp.Payments {
		resp.Payments[i] = ToPaymentResponse(pp.PlotID, pm)
	}
	return resp
}
