package plot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AggregateTypePlot is the aggregate type used in plot events
const AggregateTypePlot = "Plot"

// Dimensions of a plot in metres; Area is in square metres
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Area   float64 `json:"area"`
}

// NewDimensions builds dimensions with the area derived from length and width
func NewDimensions(length, width float64) Dimensions {
	return Dimensions{Length: length, Width: width, Area: length * width}
}

// Purchaser is the customer a plot was sold or pre-booked to
type Purchaser struct {
	Name             string    `json:"name"`
	Mobile           string    `json:"mobile"`
	Email            string    `json:"email,omitempty"`
	Address          string    `json:"address,omitempty"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Payment is a single instalment received against a plot.
// PlotNumber, SurveyNumber, CustomerName and PlotTotalCost are denormalised
// copies that the spreadsheet keeps on every payment row.
type Payment struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          PaymentMode     `json:"mode"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	Description   string          `json:"description,omitempty"`
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	PlotNumber    string          `json:"plotNumber,omitempty"`
	SurveyNumber  string          `json:"surveyNumber,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	PlotTotalCost decimal.Decimal `json:"plotTotalCost"`
}

// Plot is a parcel of land for sale
type Plot struct {
	ID             string          `json:"id"`
	SurveyNumber   SurveyNumber    `json:"surveyNumber"`
	PlotNumber     string          `json:"plotNumber"`
	Dimensions     Dimensions      `json:"dimensions"`
	Status         Status          `json:"status"`
	Owner          Owner           `json:"owner"`
	RatePerSqMeter decimal.Decimal `json:"ratePerSqMeter"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	GovernmentRate decimal.Decimal `json:"governmentRate"`
	Purchaser      *Purchaser      `json:"purchaser,omitempty"`
	Payments       []Payment       `json:"payments"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TotalPaid sums the amounts of all payments on the plot
func (p *Plot) TotalPaid() decimal.Decimal {
	return SumPayments(p.Payments)
}

// PendingAmount is the unpaid balance, never below zero
func (p *Plot) PendingAmount() decimal.Decimal {
	return PendingAmount(p.TotalCost, p.Payments)
}

// IsSold reports whether the plot has been sold
func (p *Plot) IsSold() bool {
	return p.Status == StatusSold
}

// Touch records a modification at now
func (p *Plot) Touch(now time.Time) {
	p.UpdatedAt = now
}

// Clone returns a deep copy of the plot
func (p *Plot) Clone() *Plot {
	if p == nil {
		return nil
	}
	c := *p
	if p.Purchaser != nil {
		purchaser := *p.Purchaser
		c.Purchaser = &purchaser
	}
	c.Payments = make([]Payment, len(p.Payments))
	copy(c.Payments, p.Payments)
	return &c
}

// SumPayments adds up payment amounts
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, pm := range payments {
		total = total.Add(pm.Amount)
	}
	return total
}

// PendingAmount returns max(0, totalCost - paid)
func PendingAmount(totalCost decimal.Decimal, payments []Payment) decimal.Decimal {
	pending := totalCost.Sub(SumPayments(payments))
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// NewPlotID builds the id assigned to plots created by hand
func NewPlotID(survey SurveyNumber, plotNumber string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", survey, plotNumber, now.UnixMilli())
}

// CustomerID is the id of the customer row that belongs to a plot
func CustomerID(plotID string) string {
	return "customer-" + plotID
}

// LeadingInt parses the leading integer of s the way spreadsheet tooling
// does: optional whitespace and sign, then digits. It returns 0 when there
// are no digits, so "152/1-003" yields 152.
func LeadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

// SortForSync orders plots by survey and then by the numeric value of the
// plot number. The sort is stable, so plots whose numbers compare equal keep
// their relative order.
func SortForSync(plots []*Plot) []*Plot {
	sorted := make([]*Plot, len(plots))
	copy(sorted, plots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SurveyNumber != b.SurveyNumber {
			return a.SurveyNumber < b.SurveyNumber
		}
		return LeadingInt(a.PlotNumber) < LeadingInt(b.PlotNumber)
	})
	return sorted
}
