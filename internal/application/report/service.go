package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
)

// DateRange bounds registration dates, both ends inclusive
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Filter narrows the plots a report covers. Empty lists do not filter.
type Filter struct {
	SurveyNumbers []plot.SurveyNumber
	Statuses      []plot.Status
	Owners        []plot.Owner
	PlotNumbers   []string
	DateRange     *DateRange
}

// YearlyReport covers the plots sold with a registration in one year
type YearlyReport struct {
	Year         int
	TotalSales   int
	TotalRevenue decimal.Decimal
	AverageRate  decimal.Decimal
	PlotsSold    []*plot.Plot
}

// SalesAnalytics summarises a set of plots
type SalesAnalytics struct {
	TotalPlots      int
	SoldPlots       int
	AvailablePlots  int
	PreBookedPlots  int
	TotalRevenue    decimal.Decimal
	AverageRate     decimal.Decimal
	SurveyBreakdown []SurveyAnalytics
}

// SurveyAnalytics is the analytics of one survey
type SurveyAnalytics struct {
	SurveyNumber   plot.SurveyNumber
	TotalPlots     int
	SoldPlots      int
	AvailablePlots int
	PreBookedPlots int
	TotalRevenue   decimal.Decimal
	AverageRate    decimal.Decimal
}

// YearTrend is the average sale rate of one year
type YearTrend struct {
	Year        int
	AverageRate decimal.Decimal
}

// ReportsService derives sales reports from plots
type ReportsService struct {
	logger *zap.Logger
}

// NewReportsService creates a new ReportsService
func NewReportsService(logger *zap.Logger) *ReportsService {
	return &ReportsService{logger: logger}
}

// YearlyReport covers SOLD plots whose purchaser registered in year.
// Revenue is the sum of their payments and the average rate is revenue per
// square metre sold.
func (s *ReportsService) YearlyReport(plots []*plot.Plot, year int) YearlyReport {
	sold := make([]*plot.Plot, 0)
	for _, p := range plots {
		if p.Status != plot.StatusSold || p.Purchaser == nil {
			continue
		}
		if p.Purchaser.RegistrationDate.Year() == year {
			sold = append(sold, p)
		}
	}
	revenue, area := revenueAndArea(sold)
	return YearlyReport{
		Year:         year,
		TotalSales:   len(sold),
		TotalRevenue: revenue,
		AverageRate:  averageRate(revenue, area),
		PlotsSold:    sold,
	}
}

// SalesAnalytics summarises the filtered plots, overall and per survey
func (s *ReportsService) SalesAnalytics(plots []*plot.Plot, filter *Filter) SalesAnalytics {
	filtered := plots
	if filter != nil {
		filtered = s.ApplyFilter(plots, *filter)
	}

	overall := analyse(filtered)
	result := SalesAnalytics{
		TotalPlots:      overall.TotalPlots,
		SoldPlots:       overall.SoldPlots,
		AvailablePlots:  overall.AvailablePlots,
		PreBookedPlots:  overall.PreBookedPlots,
		TotalRevenue:    overall.TotalRevenue,
		AverageRate:     overall.AverageRate,
		SurveyBreakdown: make([]SurveyAnalytics, 0, len(plot.Surveys())),
	}
	for _, survey := range plot.Surveys() {
		inSurvey := make([]*plot.Plot, 0)
		for _, p := range filtered {
			if p.SurveyNumber == survey {
				inSurvey = append(inSurvey, p)
			}
		}
		a := analyse(inSurvey)
		a.SurveyNumber = survey
		result.SurveyBreakdown = append(result.SurveyBreakdown, a)
	}
	return result
}

func analyse(plots []*plot.Plot) SurveyAnalytics {
	var a SurveyAnalytics
	sold := make([]*plot.Plot, 0)
	a.TotalPlots = len(plots)
	for _, p := range plots {
		switch p.Status {
		case plot.StatusSold:
			a.SoldPlots++
			sold = append(sold, p)
		case plot.StatusAvailable:
			a.AvailablePlots++
		case plot.StatusPreBooked:
			a.PreBookedPlots++
		}
	}
	revenue, area := revenueAndArea(sold)
	a.TotalRevenue = revenue
	a.AverageRate = averageRate(revenue, area)
	return a
}

// YearOverYearTrends lists every registration year, ascending, with the
// average rate of its yearly report.
func (s *ReportsService) YearOverYearTrends(plots []*plot.Plot) []YearTrend {
	seen := make(map[int]struct{})
	for _, p := range plots {
		if p.Purchaser != nil && !p.Purchaser.RegistrationDate.IsZero() {
			seen[p.Purchaser.RegistrationDate.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)

	trends := make([]YearTrend, 0, len(years))
	for _, y := range years {
		trends = append(trends, YearTrend{Year: y, AverageRate: s.YearlyReport(plots, y).AverageRate})
	}
	return trends
}

// ApplyFilter keeps the plots that pass every set criterion. The date range
// only applies to plots that have a purchaser.
func (s *ReportsService) ApplyFilter(plots []*plot.Plot, f Filter) []*plot.Plot {
	out := make([]*plot.Plot, 0, len(plots))
	for _, p := range plots {
		if len(f.SurveyNumbers) > 0 && !contains(f.SurveyNumbers, p.SurveyNumber) {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, p.Status) {
			continue
		}
		if len(f.Owners) > 0 && !contains(f.Owners, p.Owner) {
			continue
		}
		if f.DateRange != nil && p.Purchaser != nil {
			reg := p.Purchaser.RegistrationDate
			if reg.Before(f.DateRange.Start) || reg.After(f.DateRange.End) {
				continue
			}
		}
		if len(f.PlotNumbers) > 0 && !contains(f.PlotNumbers, p.PlotNumber) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func revenueAndArea(plots []*plot.Plot) (decimal.Decimal, decimal.Decimal) {
	revenue, area := decimal.Zero, decimal.Zero
	for _, p := range plots {
		revenue = revenue.Add(p.TotalPaid())
		area = area.Add(decimal.NewFromFloat(p.Dimensions.Area))
	}
	return revenue, area
}

func averageRate(revenue, area decimal.Decimal) decimal.Decimal {
	if !area.IsPositive() {
		return decimal.Zero
	}
	return revenue.DivRound(area, 2)
}
