package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reportapp "github.com/landplots/backend/internal/application/report"
)

func newReportEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	h := NewReportHandler(env.plots, env.reports)
	env.engine.POST("/reports/analytics", h.Analytics)
	env.engine.GET("/reports/yearly/:year", h.Yearly)
	env.engine.GET("/reports/trends", h.Trends)
	return env
}

func TestReportHandler_Analytics(t *testing.T) {
	env := newReportEnv(t)

	t.Run("empty body covers every plot", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/reports/analytics", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var a reportapp.SalesAnalyticsResponse
		decode(t, w, &a)
		assert.Equal(t, 3, a.TotalPlots)
		assert.Equal(t, 1, a.SoldPlots)
		assert.Equal(t, 1, a.AvailablePlots)
		assert.Equal(t, 1, a.PreBookedPlots)
		assert.Equal(t, "100000", a.TotalRevenue.String())
		assert.Equal(t, "500", a.AverageRate.String())
		require.Len(t, a.SurveyBreakdown, 3)
		assert.Equal(t, "152/1", a.SurveyBreakdown[0].SurveyNumber)
		assert.Equal(t, 2, a.SurveyBreakdown[0].TotalPlots)
	})

	t.Run("filtered by survey", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/reports/analytics", map[string]any{"survey_numbers": []string{"152/2"}})
		require.Equal(t, http.StatusOK, w.Code)

		var a reportapp.SalesAnalyticsResponse
		decode(t, w, &a)
		assert.Equal(t, 1, a.TotalPlots)
		assert.Equal(t, 1, a.PreBookedPlots)
		assert.True(t, a.TotalRevenue.IsZero())
	})

	t.Run("invalid survey", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/reports/analytics", map[string]any{"survey_numbers": []string{"999/9"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportHandler_Yearly(t *testing.T) {
	env := newReportEnv(t)

	w := env.do(t, http.MethodGet, "/reports/yearly/2023", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var r reportapp.YearlyReportResponse
	decode(t, w, &r)
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 1, r.TotalSales)
	require.Len(t, r.PlotsSold, 1)
	assert.Equal(t, soldID, r.PlotsSold[0].ID)
	assert.Equal(t, "Ramesh Patil", r.PlotsSold[0].PurchaserName)

	w = env.do(t, http.MethodGet, "/reports/yearly/2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &r)
	assert.Zero(t, r.TotalSales)
	assert.Empty(t, r.PlotsSold)

	for _, bad := range []string{"twenty", "42", "10000"} {
		w = env.do(t, http.MethodGet, "/reports/yearly/"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestReportHandler_Trends(t *testing.T) {
	env := newReportEnv(t)

	w := env.do(t, http.MethodGet, "/reports/trends", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var trends []reportapp.YearTrendResponse
	decode(t, w, &trends)
	require.Len(t, trends, 1)
	assert.Equal(t, 2023, trends[0].Year)
	assert.Equal(t, "500", trends[0].AverageRate.String())
}
