package plot

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// SurveySummary aggregates the plots of one survey
type SurveySummary struct {
	SurveyNumber   SurveyNumber    `json:"survey_number"`
	TotalPlots     int             `json:"total_plots"`
	AvailablePlots int             `json:"available_plots"`
	PreBookedPlots int             `json:"pre_booked_plots"`
	SoldPlots      int             `json:"sold_plots"`
	TotalArea      float64         `json:"total_area"`
	SoldArea       float64         `json:"sold_area"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
}

// DashboardStats aggregates all plots
type DashboardStats struct {
	TotalPlots      int             `json:"total_plots"`
	TotalSoldPlots  int             `json:"total_sold_plots"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	SurveySummaries []SurveySummary `json:"survey_summaries"`
}

// ComputeDashboardStats builds the dashboard figures. Revenue counts the
// payments of SOLD plots only. Pending is the sum of cost minus paid over
// SOLD plots and is not clamped per plot, so overpayments reduce it.
func ComputeDashboardStats(plots []*Plot) DashboardStats {
	stats := DashboardStats{
		TotalPlots:      len(plots),
		TotalRevenue:    decimal.Zero,
		PendingAmount:   decimal.Zero,
		SurveySummaries: make([]SurveySummary, 0, 3),
	}

	for _, survey := range Surveys() {
		s := SurveySummary{SurveyNumber: survey, TotalRevenue: decimal.Zero, PendingAmount: decimal.Zero}
		for _, p := range plots {
			if p.SurveyNumber != survey {
				continue
			}
			s.TotalPlots++
			s.TotalArea += p.Dimensions.Area
			switch p.Status {
			case StatusAvailable:
				s.AvailablePlots++
			case StatusPreBooked:
				s.PreBookedPlots++
			case StatusSold:
				paid := p.TotalPaid()
				s.SoldPlots++
				s.SoldArea += p.Dimensions.Area
				s.TotalRevenue = s.TotalRevenue.Add(paid)
				s.PendingAmount = s.PendingAmount.Add(p.TotalCost.Sub(paid))
			}
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(s.TotalRevenue)
		stats.PendingAmount = stats.PendingAmount.Add(s.PendingAmount)
		stats.SurveySummaries = append(stats.SurveySummaries, s)
	}

	for _, p := range plots {
		if p.IsSold() {
			stats.TotalSoldPlots++
		}
	}
	return stats
}

// MatchesQuery reports whether the plot matches a free-text search. Plot
// number, survey and purchaser name match case-insensitively; the mobile
// number matches as typed.
func (p *Plot) MatchesQuery(query string) bool {
	fold := cases.Fold()
	q := fold.String(query)
	if strings.Contains(fold.String(p.PlotNumber), q) ||
		strings.Contains(fold.String(string(p.SurveyNumber)), q) {
		return true
	}
	if p.Purchaser == nil {
		return false
	}
	return strings.Contains(fold.String(p.Purchaser.Name), q) ||
		strings.Contains(p.Purchaser.Mobile, query)
}
