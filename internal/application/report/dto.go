package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// FilterRequest is the JSON form of a report filter
type FilterRequest struct {
	SurveyNumbers []string   `json:"survey_numbers" binding:"omitempty,dive,oneof=152/1 152/2 152/3"`
	Statuses      []string   `json:"statuses" binding:"omitempty,dive,oneof=AVAILABLE PRE_BOOKED SOLD"`
	Owners        []string   `json:"owners" binding:"omitempty,dive,oneof=BAPURAO NARAYANRAO JOINT"`
	PlotNumbers   []string   `json:"plot_numbers"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

// ToFilter converts the request. A date range needs both ends.
func (r FilterRequest) ToFilter() Filter {
	f := Filter{PlotNumbers: r.PlotNumbers}
	for _, s := range r.SurveyNumbers {
		f.SurveyNumbers = append(f.SurveyNumbers, plot.SurveyNumber(s))
	}
	for _, s := range r.Statuses {
		f.Statuses = append(f.Statuses, plot.Status(s))
	}
	for _, o := range r.Owners {
		f.Owners = append(f.Owners, plot.Owner(o))
	}
	if r.StartDate != nil && r.EndDate != nil {
		f.DateRange = &DateRange{Start: *r.StartDate, End: *r.EndDate}
	}
	return f
}

// SurveyAnalyticsResponse is one survey of the analytics breakdown
type SurveyAnalyticsResponse struct {
	SurveyNumber   string          `json:"survey_number"`
	TotalPlots     int             `json:"total_plots"`
	SoldPlots      int             `json:"sold_plots"`
	AvailablePlots int             `json:"available_plots"`
	PreBookedPlots int             `json:"pre_booked_plots"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	AverageRate    decimal.Decimal `json:"average_rate"`
}

// SalesAnalyticsResponse represents sales analytics in API responses
type SalesAnalyticsResponse struct {
	TotalPlots      int                       `json:"total_plots"`
	SoldPlots       int                       `json:"sold_plots"`
	AvailablePlots  int                       `json:"available_plots"`
	PreBookedPlots  int                       `json:"pre_booked_plots"`
	TotalRevenue    decimal.Decimal           `json:"total_revenue"`
	AverageRate     decimal.Decimal           `json:"average_rate"`
	SurveyBreakdown []SurveyAnalyticsResponse `json:"survey_breakdown"`
}

// ToSalesAnalyticsResponse converts analytics
func ToSalesAnalyticsResponse(a SalesAnalytics) SalesAnalyticsResponse {
	resp := SalesAnalyticsResponse{
		TotalPlots:      a.TotalPlots,
		SoldPlots:       a.SoldPlots,
		AvailablePlots:  a.AvailablePlots,
		PreBookedPlots:  a.PreBookedPlots,
		TotalRevenue:    a.TotalRevenue,
		AverageRate:     a.AverageRate,
		SurveyBreakdown: make([]SurveyAnalyticsResponse, len(a.SurveyBreakdown)),
	}
	for i, s := range a.SurveyBreakdown {
		resp.SurveyBreakdown[i] = SurveyAnalyticsResponse{
			SurveyNumber:   string(s.SurveyNumber),
			TotalPlots:     s.TotalPlots,
			SoldPlots:      s.SoldPlots,
			AvailablePlots: s.AvailablePlots,
			PreBookedPlots: s.PreBookedPlots,
			TotalRevenue:   s.TotalRevenue,
			AverageRate:    s.AverageRate,
		}
	}
	return resp
}

// SoldPlotResponse is a plot line of the yearly report
type SoldPlotResponse struct {
	ID               string          `json:"id"`
	SurveyNumber     string          `json:"survey_number"`
	PlotNumber       string          `json:"plot_number"`
	Area             float64         `json:"area"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	PurchaserName    string          `json:"purchaser_name"`
	RegistrationDate time.Time       `json:"registration_date"`
}

// YearlyReportResponse represents a yearly report in API responses
type YearlyReportResponse struct {
	Year         int                `json:"year"`
	TotalSales   int                `json:"total_sales"`
	TotalRevenue decimal.Decimal    `json:"total_revenue"`
	AverageRate  decimal.Decimal    `json:"average_rate"`
	PlotsSold    []SoldPlotResponse `json:"plots_sold"`
}

// ToYearlyReportResponse converts a yearly report
func ToYearlyReportResponse(r YearlyReport) YearlyReportResponse {
	resp := YearlyReportResponse{
		Year:         r.Year,
		TotalSales:   r.TotalSales,
		TotalRevenue: r.TotalRevenue,
		AverageRate:  r.AverageRate,
		PlotsSold:    make([]SoldPlotResponse, len(r.PlotsSold)),
	}
	for i, p := range r.PlotsSold {
		resp.PlotsSold[i] = SoldPlotResponse{
			ID:               p.ID,
			SurveyNumber:     string(p.SurveyNumber),
			PlotNumber:       p.PlotNumber,
			Area:             p.Dimensions.Area,
			TotalCost:        p.TotalCost,
			TotalPaid:        p.TotalPaid(),
			PurchaserName:    p.Purchaser.Name,
			RegistrationDate: p.Purchaser.RegistrationDate,
		}
	}
	return resp
}

// YearTrendResponse is one point of the year-over-year trend
type YearTrendResponse struct {
	Year        int             `json:"year"`
	AverageRate decimal.Decimal `json:"average_rate"`
}

// ToYearTrendResponses converts trends
func ToYearTrendResponses(trends []YearTrend) []YearTrendResponse {
	out := make([]YearTrendResponse, len(trends))
	for i, t := range trends {
		out[i] = YearTrendResponse{Year: t.Year, AverageRate: t.AverageRate}
	}
	return out
}
