package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plotapp "github.com/landplots/backend/internal/application/plot"
	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

func newPlotEnv(t *testing.T, opts ...plotapp.Option) *testEnv {
	t.Helper()
	env := newTestEnv(t, opts...)
	h := NewPlotHandler(env.plots)
	env.engine.GET("/plots", h.List)
	env.engine.POST("/plots", h.Create)
	env.engine.GET("/plots/summary", h.Summary)
	env.engine.GET("/plots/:id", h.Get)
	env.engine.PUT("/plots/:id", h.Update)
	env.engine.PATCH("/plots/:id/status", h.UpdateStatus)
	env.engine.POST("/plots/:id/refresh", h.Refresh)
	env.engine.GET("/dashboard", h.Dashboard)
	env.engine.POST("/admin/regenerate", h.Regenerate)
	env.engine.DELETE("/admin/plots", h.Clear)
	return env
}

func TestPlotHandler_List(t *testing.T) {
	env := newPlotEnv(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all plots in list order", "", []string{soldID, availableID, bookedID}},
		{"by survey", "?survey=152/1", []string{soldID, availableID}},
		{"by status", "?status=PRE_BOOKED", []string{bookedID}},
		{"survey and status", "?survey=152/1&status=SOLD", []string{soldID}},
		{"free text matches purchaser", "?q=patil", []string{soldID}},
		{"no match", "?q=nobody", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/plots"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var plots []plotapp.PlotResponse
			resp := decode(t, w, &plots)
			ids := make([]string, len(plots))
			for i, p := range plots {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, int64(len(tt.wantIDs)), resp.Meta.Total)
		})
	}

	t.Run("pagination", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/plots?page=2&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var plots []plotapp.PlotResponse
		resp := decode(t, w, &plots)
		require.Len(t, plots, 1)
		assert.Equal(t, bookedID, plots[0].ID)
		assert.Equal(t, int64(3), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/plots?status=LEASED", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})
}

func TestPlotHandler_Get(t *testing.T) {
	env := newPlotEnv(t)

	t.Run("escaped id with slash", func(t *testing.T) {
		w := env.do(t, http.MethodGet, plotPath(soldID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var p plotapp.PlotResponse
		decode(t, w, &p)
		assert.Equal(t, soldID, p.ID)
		assert.Equal(t, "400000", p.PendingAmount.String())
		assert.Equal(t, "100000", p.TotalPaid.String())
		require.NotNil(t, p.Purchaser)
		assert.Equal(t, "Ramesh Patil", p.Purchaser.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, plotPath("152/3-99-1"), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
	})

	t.Run("summary is not an id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/plots/summary", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var s plot.Summary
		decode(t, w, &s)
		assert.Equal(t, 3, s.Total)
	})
}

func TestPlotHandler_Create(t *testing.T) {
	env := newPlotEnv(t)

	w := env.do(t, http.MethodPost, "/plots", map[string]any{
		"survey_number": "152/3",
		"plot_number":   "77",
		"dimensions":    map[string]float64{"length": 12, "width": 9},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p plotapp.PlotResponse
	decode(t, w, &p)
	assert.Equal(t, "152/3-77-1742034600000", p.ID)
	assert.Equal(t, string(plot.StatusAvailable), p.Status)
	assert.Equal(t, string(plot.OwnerJoint), p.Owner)
	assert.InDelta(t, 108.0, p.Area, 0.001)
	assert.Equal(t, 4, env.plots.PlotCount())

	t.Run("duplicate plot number in survey", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/plots", map[string]any{"survey_number": "152/1", "plot_number": "1"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, errorCode(t, w))
	})

	t.Run("unknown owner", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/plots", map[string]any{"plot_number": "78", "owner": "SOMEONE"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidationFormat, errorCode(t, w))
	})

	t.Run("missing plot number", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/plots", map[string]any{"survey_number": "152/1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "PlotNumber", resp.Error.Details[0].Field)
	})
}

func TestPlotHandler_Update(t *testing.T) {
	env := newPlotEnv(t)

	w := env.do(t, http.MethodPut, plotPath(availableID), map[string]any{
		"status":     "PRE_BOOKED",
		"total_cost": "250000",
		"purchaser":  map[string]string{"name": "Anil Jadhav", "mobile": "9000000001"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p plotapp.PlotResponse
	decode(t, w, &p)
	assert.Equal(t, "PRE_BOOKED", p.Status)
	assert.Equal(t, "250000", p.TotalCost.String())
	assert.Equal(t, testNow, p.UpdatedAt)

	stored, err := env.plots.PlotByID(availableID)
	require.NoError(t, err)
	require.NotNil(t, stored.Purchaser)
	assert.Equal(t, "Anil Jadhav", stored.Purchaser.Name)

	t.Run("clear purchaser", func(t *testing.T) {
		w := env.do(t, http.MethodPut, plotPath(availableID), map[string]any{"clear_purchaser": true, "status": "AVAILABLE"})
		require.Equal(t, http.StatusOK, w.Code)
		stored, _ := env.plots.PlotByID(availableID)
		assert.Nil(t, stored.Purchaser)
	})

	t.Run("unknown status", func(t *testing.T) {
		w := env.do(t, http.MethodPut, plotPath(availableID), map[string]any{"status": "LEASED"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidationFormat, errorCode(t, w))
	})

	t.Run("unknown plot", func(t *testing.T) {
		w := env.do(t, http.MethodPut, plotPath("nope"), map[string]any{"status": "SOLD"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPlotHandler_UpdateStatus(t *testing.T) {
	env := newPlotEnv(t)

	w := env.do(t, http.MethodPatch, plotPath(bookedID, "/status"), map[string]string{"status": "SOLD"})
	require.Equal(t, http.StatusOK, w.Code)
	stored, _ := env.plots.PlotByID(bookedID)
	assert.Equal(t, plot.StatusSold, stored.Status)

	w = env.do(t, http.MethodPatch, plotPath(bookedID, "/status"), map[string]string{"status": "GIFTED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidationFormat, errorCode(t, w))

	w = env.do(t, http.MethodPatch, plotPath(bookedID, "/status"), map[string]string{"status": "pre_booked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored, _ = env.plots.PlotByID(bookedID)
	assert.Equal(t, plot.StatusPreBooked, stored.Status)

	w = env.do(t, http.MethodPatch, plotPath(bookedID, "/status"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlotHandler_Refresh(t *testing.T) {
	env := newPlotEnv(t)

	env.remote.mu.Lock()
	env.remote.plots[1].Status = plot.StatusSold
	env.remote.mu.Unlock()

	w := env.do(t, http.MethodPost, plotPath(availableID, "/refresh"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p plotapp.PlotResponse
	decode(t, w, &p)
	assert.Equal(t, "SOLD", p.Status)

	t.Run("spreadsheet down returns the local copy", func(t *testing.T) {
		env.remote.setFetchErr(errRemoteDown)
		w := env.do(t, http.MethodPost, plotPath(bookedID, "/refresh"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var p plotapp.PlotResponse
		decode(t, w, &p)
		assert.Equal(t, bookedID, p.ID)
	})
}

func TestPlotHandler_Dashboard(t *testing.T) {
	env := newPlotEnv(t)

	w := env.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats plot.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, 3, stats.TotalPlots)
	assert.Equal(t, 1, stats.TotalSoldPlots)
}

func TestPlotHandler_RegenerateAndClear(t *testing.T) {
	env := newPlotEnv(t, plotapp.WithSheetsEnabled(false))

	w := env.do(t, http.MethodPost, "/admin/regenerate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result plotapp.RegenerateResult
	decode(t, w, &result)
	assert.Equal(t, 290, result.Summary.Total)
	assert.False(t, result.SyncQueued)
	assert.Equal(t, 290, env.plots.PlotCount())

	w = env.do(t, http.MethodPost, "/admin/regenerate", map[string]bool{"include_sample_data": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, len(env.plots.PlotsByStatus(plot.StatusSold)))

	w = env.do(t, http.MethodDelete, "/admin/plots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared struct {
		Count int `json:"count"`
	}
	decode(t, w, &cleared)
	assert.Zero(t, cleared.Count)
	assert.Zero(t, env.plots.PlotCount())
}
