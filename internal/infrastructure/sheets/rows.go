package sheets

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// Header rows of the three sheets
var (
	PlotHeaders = []string{
		"ID", "Survey Number", "Plot Number", "Length", "Width", "Area", "Status",
		"Owner", "Rate Per SqM", "Total Cost", "Government Rate", "Created At", "Updated At",
	}
	PaymentHeaders = []string{
		"Payment ID", "Plot ID", "Amount", "Date", "Mode", "Description",
		"Receipt Number", "Plot Number", "Survey Number", "Customer Name",
	}
	CustomerHeaders = []string{
		"Customer ID", "Plot ID", "Name", "Mobile", "Email", "Address", "Registration Date",
	}
)

// PlotRow converts a plot to its row in the Plots sheet
func PlotRow(p *plot.Plot) []any {
	return []any{
		p.ID,
		string(p.SurveyNumber),
		p.PlotNumber,
		p.Dimensions.Length,
		p.Dimensions.Width,
		p.Dimensions.Area,
		string(p.Status),
		string(p.Owner),
		p.RatePerSqMeter.InexactFloat64(),
		p.TotalCost.InexactFloat64(),
		p.GovernmentRate.InexactFloat64(),
		isoTime(p.CreatedAt),
		isoTime(p.UpdatedAt),
	}
}

// PaymentRow converts a payment to its row in the Payments sheet
func PaymentRow(pm plot.Payment, plotID string) []any {
	return []any{
		pm.ID,
		plotID,
		pm.Amount.InexactFloat64(),
		isoTime(pm.Date),
		string(pm.Mode),
		pm.Description,
		pm.ReceiptNumber,
		pm.PlotNumber,
		pm.SurveyNumber,
		pm.CustomerName,
	}
}

// CustomerRow converts a purchaser to its row in the Customers sheet. There
// is at most one customer per plot, keyed by CustomerID(plotID).
func CustomerRow(c *plot.Purchaser, plotID string) []any {
	return []any{
		plot.CustomerID(plotID),
		plotID,
		c.Name,
		c.Mobile,
		c.Email,
		c.Address,
		isoTime(c.RegistrationDate),
	}
}

// cell returns row[i] as a string, "" when out of range
func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func cellFloat(row []any, i int) float64 {
	if i < len(row) {
		if f, ok := row[i].(float64); ok {
			return f
		}
	}
	return leadingFloat(cell(row, i))
}

func cellMoney(row []any, i int) decimal.Decimal {
	return decimal.NewFromFloat(cellFloat(row, i))
}

func cellTime(row []any, i int, now time.Time) time.Time {
	if t := parseTimeString(cell(row, i)); !t.IsZero() {
		return t
	}
	return now
}

func isEmptyRow(row []any) bool {
	for i := range row {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}

// PlotsFromRows joins the three sheets into plots. The first row of each
// grid is a header. Customers and payments belong to the plot whose id is
// in their second column.
func PlotsFromRows(plotRows, paymentRows, customerRows [][]any, now time.Time) []*plot.Plot {
	customers := make(map[string]*plot.Purchaser)
	for _, row := range skipHeader(customerRows) {
		plotID := cell(row, 1)
		if plotID == "" {
			continue
		}
		if _, seen := customers[plotID]; seen {
			continue
		}
		customers[plotID] = &plot.Purchaser{
			Name:             cell(row, 2),
			Mobile:           cell(row, 3),
			Email:            cell(row, 4),
			Address:          cell(row, 5),
			RegistrationDate: cellTime(row, 6, now),
		}
	}

	payments := make(map[string][]plot.Payment)
	for _, row := range skipHeader(paymentRows) {
		plotID := cell(row, 1)
		if plotID == "" {
			continue
		}
		mode := plot.PaymentMode(cell(row, 4))
		if mode == "" {
			mode = plot.PaymentModeCash
		}
		payments[plotID] = append(payments[plotID], plot.Payment{
			ID:            cell(row, 0),
			Amount:        cellMoney(row, 2),
			Date:          cellTime(row, 3, now),
			Mode:          mode,
			Description:   cell(row, 5),
			ReceiptNumber: cell(row, 6),
			PlotNumber:    cell(row, 7),
			SurveyNumber:  cell(row, 8),
			CustomerName:  cell(row, 9),
		})
	}

	plots := make([]*plot.Plot, 0, len(plotRows))
	for _, row := range skipHeader(plotRows) {
		if len(row) == 0 || isEmptyRow(row) {
			continue
		}
		id := cell(row, 0)
		survey := plot.SurveyNumber(cell(row, 1))
		if survey == "" {
			survey = plot.Survey1521
		}
		status := plot.Status(cell(row, 6))
		if status == "" {
			status = plot.StatusAvailable
		}
		owner := plot.Owner(cell(row, 7))
		if owner == "" {
			owner = plot.OwnerBapurao
		}
		pays := payments[id]
		if pays == nil {
			pays = []plot.Payment{}
		}
		plots = append(plots, &plot.Plot{
			ID:           id,
			SurveyNumber: survey,
			PlotNumber:   cell(row, 2),
			Dimensions: plot.Dimensions{
				Length: cellFloat(row, 3),
				Width:  cellFloat(row, 4),
				Area:   cellFloat(row, 5),
			},
			Status:         status,
			Owner:          owner,
			RatePerSqMeter: cellMoney(row, 8),
			TotalCost:      cellMoney(row, 9),
			GovernmentRate: cellMoney(row, 10),
			Purchaser:      customers[id],
			Payments:       pays,
			CreatedAt:      cellTime(row, 11, now),
			UpdatedAt:      cellTime(row, 12, now),
		})
	}
	return plots
}

func skipHeader(rows [][]any) [][]any {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

// HeaderLayout names a sheet and its header row
type HeaderLayout struct {
	Sheet   string
	Headers []string
}

// Layouts returns the header layouts for the configured sheet names
func Layouts(cfg Config) []HeaderLayout {
	return []HeaderLayout{
		{Sheet: cfg.PlotsSheet, Headers: PlotHeaders},
		{Sheet: cfg.PaymentsSheet, Headers: PaymentHeaders},
		{Sheet: cfg.CustomersSheet, Headers: CustomerHeaders},
	}
}
