package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	plotapp "github.com/landplots/backend/internal/application/plot"
	reportapp "github.com/landplots/backend/internal/application/report"
)

// ReportHandler handles sales report endpoints
type ReportHandler struct {
	BaseHandler
	plots   *plotapp.PlotService
	reports *reportapp.ReportsService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(plots *plotapp.PlotService, reports *reportapp.ReportsService) *ReportHandler {
	return &ReportHandler{plots: plots, reports: reports}
}

// Analytics computes sales analytics over the filtered plots. An empty body
// covers every plot.
//
//	POST /reports/analytics
func (h *ReportHandler) Analytics(c *gin.Context) {
	var req reportapp.FilterRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := req.ToFilter()
	a := h.reports.SalesAnalytics(h.plots.AllPlots(), &filter)
	h.Success(c, reportapp.ToSalesAnalyticsResponse(a))
}

// Yearly lists the sales registered in a year
//
//	GET /reports/yearly/:year
func (h *ReportHandler) Yearly(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 9999 {
		h.BadRequest(c, "Invalid year")
		return
	}
	r := h.reports.YearlyReport(h.plots.AllPlots(), year)
	h.Success(c, reportapp.ToYearlyReportResponse(r))
}

// Trends returns the average sold rate per registration year
//
//	GET /reports/trends
func (h *ReportHandler) Trends(c *gin.Context) {
	trends := h.reports.YearOverYearTrends(h.plots.AllPlots())
	h.Success(c, reportapp.ToYearTrendResponses(trends))
}
