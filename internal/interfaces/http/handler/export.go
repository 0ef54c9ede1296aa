package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/landplots/backend/internal/application/export"
	paymentapp "github.com/landplots/backend/internal/application/payment"
	plotapp "github.com/landplots/backend/internal/application/plot"
	reportapp "github.com/landplots/backend/internal/application/report"
)

// Report exports served under /exports/reports/:kind
const (
	ReportOverview = "overview"
	ReportSurveys  = "surveys"
	ReportTrends   = "trends"
)

// ExportHandler serves CSV and xlsx downloads and archives exports to
// object storage
type ExportHandler struct {
	BaseHandler
	plots    *plotapp.PlotService
	payments *paymentapp.PaymentService
	reports  *reportapp.ReportsService
	archiver *export.Archiver
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler. archiver may be nil.
func NewExportHandler(
	plots *plotapp.PlotService,
	payments *paymentapp.PaymentService,
	reports *reportapp.ReportsService,
	archiver *export.Archiver,
) *ExportHandler {
	return &ExportHandler{
		plots:    plots,
		payments: payments,
		reports:  reports,
		archiver: archiver,
		now:      time.Now,
	}
}

// ArchiveRequest selects the format of an archived export
type ArchiveRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=csv xlsx"`
	Mode   string `json:"mode" binding:"max=20"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// PlotsCSV downloads every plot as CSV
//
//	GET /exports/plots.csv
func (h *ExportHandler) PlotsCSV(c *gin.Context) {
	h.attachment(c, "plots", export.FormatCSV, []byte(h.plots.ExportCSV()))
}

// PlotsXLSX downloads every plot as a workbook
//
//	GET /exports/plots.xlsx
func (h *ExportHandler) PlotsXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.plots.ExportXLSX(&buf); err != nil {
		h.HandleError(c, err)
		return
	}
	h.attachment(c, "plots", export.FormatXLSX, buf.Bytes())
}

// PaymentsCSV downloads payments as CSV, filtered like GET /payments
//
//	GET /exports/payments.csv
func (h *ExportHandler) PaymentsCSV(c *gin.Context) {
	filter, ok := h.paymentFilter(c)
	if !ok {
		return
	}
	h.attachment(c, "payments", export.FormatCSV, []byte(h.payments.ExportCSV(filter)))
}

// PaymentsXLSX downloads payments as a workbook
//
//	GET /exports/payments.xlsx
func (h *ExportHandler) PaymentsXLSX(c *gin.Context) {
	filter, ok := h.paymentFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.payments.ExportXLSX(filter, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	h.attachment(c, "payments", export.FormatXLSX, buf.Bytes())
}

// Report downloads one of the analytics tables over all plots
//
//	GET /exports/reports/:kind?format=xlsx
func (h *ExportHandler) Report(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	plots := h.plots.AllPlots()
	kind := c.Param("kind")
	var records []reportapp.Record
	switch kind {
	case ReportOverview:
		records = reportapp.OverviewRecords(h.reports.SalesAnalytics(plots, nil))
	case ReportSurveys:
		records = reportapp.SurveyRecords(h.reports.SalesAnalytics(plots, nil))
	case ReportTrends:
		records = reportapp.TrendRecords(h.reports.YearOverYearTrends(plots))
	default:
		h.NotFound(c, fmt.Sprintf("Unknown report %q", kind))
		return
	}

	if format == export.FormatXLSX {
		var buf bytes.Buffer
		if err := h.reports.ExportXLSX(records, kind, &buf); err != nil {
			h.HandleError(c, err)
			return
		}
		h.attachment(c, "report-"+kind, format, buf.Bytes())
		return
	}
	h.attachment(c, "report-"+kind, format, []byte(h.reports.ExportCSV(records)))
}

// Archive renders plots or payments and uploads the file to object storage,
// answering with a presigned download link.
//
//	POST /exports/:dataset
func (h *ExportHandler) Archive(c *gin.Context) {
	var req ArchiveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	dataset := c.Param("dataset")
	var table export.Table
	switch dataset {
	case "plots":
		table = h.plots.Table()
	case "payments":
		filter, err := paymentapp.ListQuery{Mode: req.Mode, From: req.From, To: req.To}.ToFilter()
		if err != nil {
			h.FilterError(c, err)
			return
		}
		table = h.payments.Table(filter)
	default:
		h.NotFound(c, fmt.Sprintf("Unknown export %q", dataset))
		return
	}

	link, err := h.archiver.Archive(c.Request.Context(), dataset, table, format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, link)
}

func (h *ExportHandler) paymentFilter(c *gin.Context) (paymentapp.ListFilter, bool) {
	var q paymentapp.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return paymentapp.ListFilter{}, false
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.FilterError(c, err)
		return paymentapp.ListFilter{}, false
	}
	return filter, true
}

// attachment sends data as a dated download, e.g. plots-2024-03-15.csv
func (h *ExportHandler) attachment(c *gin.Context, name string, format export.Format, data []byte) {
	contentType := export.ContentTypeCSV
	if format == export.FormatXLSX {
		contentType = export.ContentTypeXLSX
	}
	filename := fmt.Sprintf("%s-%s.%s", name, h.now().Format(time.DateOnly), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
