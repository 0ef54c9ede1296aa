package handler

import (
	"github.com/gin-gonic/gin"

	plotapp "github.com/landplots/backend/internal/application/plot"
	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

// PlotHandler handles plot API endpoints
type PlotHandler struct {
	BaseHandler
	plots *plotapp.PlotService
}

// NewPlotHandler creates a new PlotHandler
func NewPlotHandler(plots *plotapp.PlotService) *PlotHandler {
	return &PlotHandler{plots: plots}
}

// List returns the plot list, optionally filtered by survey, status and a
// free-text query, in list order.
//
//	GET /plots?survey=152/1&status=SOLD&q=patil&page=1&page_size=50
func (h *PlotHandler) List(c *gin.Context) {
	var filter plotapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	var plots []*plot.Plot
	switch {
	case filter.Survey != "":
		plots = h.plots.PlotsBySurvey(plot.SurveyNumber(filter.Survey))
	case filter.Status != "":
		plots = h.plots.PlotsByStatus(plot.Status(filter.Status))
	default:
		plots = h.plots.AllPlots()
	}

	out := plots[:0:0]
	for _, p := range plots {
		if filter.Status != "" && p.Status != plot.Status(filter.Status) {
			continue
		}
		if filter.Query != "" && !p.MatchesQuery(filter.Query) {
			continue
		}
		out = append(out, p)
	}

	page, pageNum, pageSize := dto.Paginate(out, filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, plotapp.ToPlotResponses(page), int64(len(out)), pageNum, pageSize)
}

// Get returns one plot
//
//	GET /plots/:id
func (h *PlotHandler) Get(c *gin.Context) {
	p, err := h.plots.PlotByID(c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plotapp.ToPlotResponse(p))
}

// Create adds a hand-entered plot
//
//	POST /plots
func (h *PlotHandler) Create(c *gin.Context) {
	var req plotapp.CreatePlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.plots.AddPlot(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plotapp.ToPlotResponse(p))
}

// Update changes the fields present in the body
//
//	PUT /plots/:id
func (h *PlotHandler) Update(c *gin.Context) {
	var req plotapp.UpdatePlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	p, err := h.plots.Modify(c.Request.Context(), c.Param("id"), req.Apply)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plotapp.ToPlotResponse(p))
}

// UpdateStatus moves a plot to another status
//
//	PATCH /plots/:id/status
func (h *PlotHandler) UpdateStatus(c *gin.Context) {
	var req plotapp.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	status, err := req.ToStatus()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.plots.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plotapp.ToPlotResponse(p))
}

// Refresh reloads the plot from the spreadsheet
//
//	POST /plots/:id/refresh
func (h *PlotHandler) Refresh(c *gin.Context) {
	p, err := h.plots.RefreshPlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plotapp.ToPlotResponse(p))
}

// Summary returns counts and area by survey and size
//
//	GET /plots/summary
func (h *PlotHandler) Summary(c *gin.Context) {
	h.Success(c, h.plots.Summary())
}

// Dashboard returns the dashboard statistics
//
//	GET /dashboard
func (h *PlotHandler) Dashboard(c *gin.Context) {
	h.Success(c, h.plots.DashboardStats())
}

// Regenerate rebuilds the full plot list. The body is optional.
//
//	POST /admin/regenerate
func (h *PlotHandler) Regenerate(c *gin.Context) {
	var req plotapp.RegenerateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.plots.RegenerateAll(c.Request.Context(), req.IncludeSampleData, req.SyncToSheets)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Clear removes every plot from memory and from the local store
//
//	DELETE /admin/plots
func (h *PlotHandler) Clear(c *gin.Context) {
	if err := h.plots.Clear(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"count": h.plots.PlotCount()})
}
