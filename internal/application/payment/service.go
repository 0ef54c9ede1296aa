package payment

import (
	"context"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/application/export"
	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/domain/shared"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
)

// PlotStore is the part of the plot service payments need
type PlotStore interface {
	AllPlots() []*plot.Plot
	PlotByID(id string) (*plot.Plot, error)
	ModifyWithEvent(ctx context.Context, id string, fn func(*plot.Plot) error, announce func(*plot.Plot) shared.DomainEvent) (*plot.Plot, error)
}

// PaymentService records instalments against plots
type PaymentService struct {
	plots  PlotStore
	logger *zap.Logger
	now    func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option configures a PaymentService
type Option func(*PaymentService)

// WithClock sets the time source used for payment ids
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) {
		s.now = now
	}
}

// WithRand sets the random source used for payment ids
func WithRand(rnd *rand.Rand) Option {
	return func(s *PaymentService) {
		s.rnd = rnd
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(plots PlotStore, logger *zap.Logger, opts ...Option) *PaymentService {
	s := &PaymentService{
		plots:  plots,
		logger: logger,
		now:    time.Now,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPayment validates the input, assigns an id and appends the payment to
// the plot. Blank plot number, survey, customer and plot cost are copied
// from the plot.
func (s *PaymentService) AddPayment(ctx context.Context, plotID string, in plot.PaymentInput) (*plot.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "add",
		telemetry.WithAttribute(telemetry.SpanAttrPlotID, plotID))
	defer span.End()

	if err := plot.ValidatePayment(in).Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.rndMu.Lock()
	id := plot.NewPaymentID(s.now(), s.rnd)
	s.rndMu.Unlock()

	var added plot.Payment
	_, err := s.plots.ModifyWithEvent(ctx, plotID, func(p *plot.Plot) error {
		added = fillFromPlot(plot.NewPayment(id, in), p)
		p.Payments = append(p.Payments, added)
		telemetry.SetAttributes(span,
			telemetry.SpanAttrPaymentSeq, len(p.Payments),
			telemetry.SpanAttrAmount, added.Amount.InexactFloat64(),
		)
		return nil
	}, func(p *plot.Plot) shared.DomainEvent {
		return plot.NewPaymentAddedEvent(p, added)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	s.logger.Info("Payment added",
		zap.String("plot_id", plotID),
		zap.String("payment_id", id),
		zap.String("amount", added.Amount.String()),
		zap.String("mode", string(added.Mode)),
	)
	return &added, nil
}

func fillFromPlot(pm plot.Payment, p *plot.Plot) plot.Payment {
	if pm.PlotNumber == "" {
		pm.PlotNumber = p.PlotNumber
	}
	if pm.SurveyNumber == "" {
		pm.SurveyNumber = string(p.SurveyNumber)
	}
	if pm.CustomerName == "" && p.Purchaser != nil {
		pm.CustomerName = p.Purchaser.Name
	}
	if pm.PlotTotalCost.IsZero() {
		pm.PlotTotalCost = p.TotalCost
	}
	return pm
}

// Validate checks a payment input without storing it
func (s *PaymentService) Validate(in plot.PaymentInput) plot.ValidationResult {
	return plot.ValidatePayment(in)
}

// TotalPaid sums payment amounts
func (s *PaymentService) TotalPaid(payments []plot.Payment) decimal.Decimal {
	return plot.SumPayments(payments)
}

// PendingAmount is max(0, totalCost - paid)
func (s *PaymentService) PendingAmount(totalCost decimal.Decimal, payments []plot.Payment) decimal.Decimal {
	return plot.PendingAmount(totalCost, payments)
}

// ByDateRange keeps payments dated within [start, end]
func (s *PaymentService) ByDateRange(payments []plot.Payment, start, end time.Time) []plot.Payment {
	return plot.FilterPaymentsByDateRange(payments, start, end)
}

// ByMode keeps payments of one mode
func (s *PaymentService) ByMode(payments []plot.Payment, mode plot.PaymentMode) []plot.Payment {
	return plot.FilterPaymentsByMode(payments, mode)
}

// FormatMode returns the display label of a mode
func (s *PaymentService) FormatMode(mode plot.PaymentMode) string {
	return plot.FormatPaymentMode(mode)
}

// PlotPayment is a payment together with the plot it belongs to
type PlotPayment struct {
	PlotID string
	plot.Payment
}

// AllPayments flattens the payments of every plot, in plot order. Missing
// plot number, survey and customer name are filled from the plot; the
// customer falls back to "Unknown".
func (s *PaymentService) AllPayments() []PlotPayment {
	out := make([]PlotPayment, 0)
	for _, p := range s.plots.AllPlots() {
		for _, pm := range p.Payments {
			if pm.PlotNumber == "" {
				pm.PlotNumber = p.PlotNumber
			}
			if pm.SurveyNumber == "" {
				pm.SurveyNumber = string(p.SurveyNumber)
			}
			if pm.CustomerName == "" {
				pm.CustomerName = "Unknown"
				if p.Purchaser != nil && p.Purchaser.Name != "" {
					pm.CustomerName = p.Purchaser.Name
				}
			}
			out = append(out, PlotPayment{PlotID: p.ID, Payment: pm})
		}
	}
	return out
}

// ListFilter narrows the payment listing. Zero values do not filter.
type ListFilter struct {
	Mode plot.PaymentMode
	From time.Time
	To   time.Time
}

// ListSummary is a filtered payment listing with totals
type ListSummary struct {
	Payments []PlotPayment
	Total    decimal.Decimal
	ByMode   map[plot.PaymentMode]decimal.Decimal
}

// List returns payments matching the filter, newest first
func (s *PaymentService) List(filter ListFilter) ListSummary {
	all := s.AllPayments()
	out := make([]PlotPayment, 0, len(all))
	for _, pp := range all {
		if filter.Mode != "" && pp.Mode != filter.Mode {
			continue
		}
		if !filter.From.IsZero() && pp.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && pp.Date.After(filter.To) {
			continue
		}
		out = append(out, pp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	summary := ListSummary{
		Payments: out,
		Total:    decimal.Zero,
		ByMode:   make(map[plot.PaymentMode]decimal.Decimal),
	}
	for _, pp := range out {
		summary.Total = summary.Total.Add(pp.Amount)
		summary.ByMode[pp.Mode] = summary.ByMode[pp.Mode].Add(pp.Amount)
	}
	return summary
}

// PaymentExportHeaders match the column order of the Payments sheet
var PaymentExportHeaders = []string{
	"Payment ID", "Plot ID", "Amount", "Date", "Mode", "Description",
	"Receipt Number", "Plot Number", "Survey Number", "Customer Name",
}

func paymentTable(payments []PlotPayment) export.Table {
	rows := make([][]any, 0, len(payments))
	for _, pp := range payments {
		rows = append(rows, []any{
			pp.ID, pp.PlotID, pp.Amount, pp.Date, string(pp.Mode), pp.Description,
			pp.ReceiptNumber, pp.PlotNumber, pp.SurveyNumber, pp.CustomerName,
		})
	}
	return export.Table{Sheet: "Payments", Headers: PaymentExportHeaders, Rows: rows}
}

// Table returns the filtered payments as an export table
func (s *PaymentService) Table(filter ListFilter) export.Table {
	return paymentTable(s.List(filter).Payments)
}

// ExportCSV renders the filtered payments as CSV
func (s *PaymentService) ExportCSV(filter ListFilter) string {
	return s.Table(filter).CSVAllQuoted()
}

// ExportXLSX writes the filtered payments as a workbook
func (s *PaymentService) ExportXLSX(filter ListFilter, w io.Writer) error {
	return s.Table(filter).WriteXLSX(w)
}

// PlotPayments is the payment ledger of one plot
type PlotPayments struct {
	PlotID        string
	TotalCost     decimal.Decimal
	TotalPaid     decimal.Decimal
	PendingAmount decimal.Decimal
	Payments      []plot.Payment
}

// ForPlot returns the payments of a plot with its totals
func (s *PaymentService) ForPlot(plotID string) (*PlotPayments, error) {
	p, err := s.plots.PlotByID(plotID)
	if err != nil {
		return nil, err
	}
	return &PlotPayments{
		PlotID:        p.ID,
		TotalCost:     p.TotalCost,
		TotalPaid:     p.TotalPaid(),
		PendingAmount: p.PendingAmount(),
		Payments:      p.Payments,
	}, nil
}
