package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	plotapp "github.com/landplots/backend/internal/application/plot"
	"github.com/landplots/backend/internal/domain/shared"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/scheduler"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

// SyncJobs is the part of the sync scheduler the API exposes
type SyncJobs interface {
	EnqueuePull(ctx context.Context, reason string) (*scheduler.SyncJob, error)
	Jobs(limit int) []scheduler.SyncJob
	Job(id uuid.UUID) (scheduler.SyncJob, error)
	LastJob(jobType scheduler.JobType) (scheduler.SyncJob, bool)
	QueueDepth() int
}

// SheetsAdmin manages the spreadsheet itself
type SheetsAdmin interface {
	InitializeSheets(ctx context.Context) error
	PendingCallbacks() int
}

// SyncHandler handles the spreadsheet sync endpoints
type SyncHandler struct {
	BaseHandler
	plots  *plotapp.PlotService
	jobs   SyncJobs
	sheets SheetsAdmin
}

// NewSyncHandler creates a new SyncHandler. jobs is nil when the background
// scheduler is disabled; pushes then run inside the request.
func NewSyncHandler(plots *plotapp.PlotService, jobs SyncJobs, sheets SheetsAdmin) *SyncHandler {
	return &SyncHandler{plots: plots, jobs: jobs, sheets: sheets}
}

// SyncStatusResponse describes the spreadsheet integration
type SyncStatusResponse struct {
	SheetsEnabled    bool               `json:"sheets_enabled"`
	PlotCount        int                `json:"plot_count"`
	SchedulerEnabled bool               `json:"scheduler_enabled"`
	QueueDepth       int                `json:"queue_depth"`
	PendingCallbacks int                `json:"pending_callbacks"`
	LastPush         *scheduler.SyncJob `json:"last_push,omitempty"`
	LastPull         *scheduler.SyncJob `json:"last_pull,omitempty"`
}

// Status reports the integration flag, the plot count and the latest jobs
//
//	GET /sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	resp := SyncStatusResponse{
		SheetsEnabled: h.plots.SheetsEnabled(),
		PlotCount:     h.plots.PlotCount(),
	}
	if h.sheets != nil {
		resp.PendingCallbacks = h.sheets.PendingCallbacks()
	}
	if h.jobs != nil {
		resp.SchedulerEnabled = true
		resp.QueueDepth = h.jobs.QueueDepth()
		if j, ok := h.jobs.LastJob(scheduler.JobTypePush); ok {
			resp.LastPush = &j
		}
		if j, ok := h.jobs.LastJob(scheduler.JobTypePull); ok {
			resp.LastPull = &j
		}
	}
	h.Success(c, resp)
}

// Enable turns the integration on and reloads from the spreadsheet
//
//	POST /sync/enable
func (h *SyncHandler) Enable(c *gin.Context) {
	h.Success(c, h.plots.EnableSheets(c.Request.Context()))
}

// Disable turns the integration off and reloads local data
//
//	POST /sync/disable
func (h *SyncHandler) Disable(c *gin.Context) {
	h.Success(c, h.plots.DisableSheets(c.Request.Context()))
}

// Test pings the Apps Script middleware
//
//	POST /sync/test
func (h *SyncHandler) Test(c *gin.Context) {
	ok, err := h.plots.TestConnection(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"connected": ok})
}

// Push sends every plot to the spreadsheet. With the scheduler running the
// push is queued and the call returns 202.
//
//	POST /sync/push
func (h *SyncHandler) Push(c *gin.Context) {
	ctx := c.Request.Context()
	if h.jobs == nil {
		result, err := h.plots.SyncAll(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	if err := h.plots.RequestSync(ctx, "api"); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"queued": true})
}

// Pull reloads the list from the spreadsheet. ?async=true queues a pull job
// instead of waiting.
//
//	POST /sync/pull
func (h *SyncHandler) Pull(c *gin.Context) {
	ctx := c.Request.Context()
	if async, _ := strconv.ParseBool(c.Query("async")); async && h.jobs != nil {
		if !h.plots.SheetsEnabled() {
			h.HandleError(c, plotapp.ErrSheetsDisabled)
			return
		}
		job, err := h.jobs.EnqueuePull(ctx, "api")
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Accepted(c, job)
		return
	}

	result, err := h.plots.Pull(ctx)
	if err != nil {
		h.remoteError(c, "Failed to read plots from Google Sheets", err)
		return
	}
	h.Success(c, result)
}

// remoteError answers a failed spreadsheet call. Domain errors keep their
// code; transport failures become 503.
func (h *SyncHandler) remoteError(c *gin.Context, msg string, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Warn(msg, zap.Error(err))
	h.ErrorWithCode(c, dto.ErrCodeUnavailable, msg+": "+err.Error())
}

// Initialize creates the sheets and their header rows
//
//	POST /sync/initialize
func (h *SyncHandler) Initialize(c *gin.Context) {
	if h.sheets == nil || !h.plots.SheetsEnabled() {
		h.HandleError(c, plotapp.ErrSheetsDisabled)
		return
	}
	if err := h.sheets.InitializeSheets(c.Request.Context()); err != nil {
		h.remoteError(c, "Failed to initialize sheets", err)
		return
	}
	h.Success(c, gin.H{"initialized": true})
}

// Jobs lists recent sync jobs, newest first
//
//	GET /sync/jobs?limit=20
func (h *SyncHandler) Jobs(c *gin.Context) {
	if h.jobs == nil {
		h.Success(c, []scheduler.SyncJob{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		h.BadRequest(c, "Invalid limit")
		return
	}
	h.Success(c, h.jobs.Jobs(limit))
}

// Job returns one sync job
//
//	GET /sync/jobs/:id
func (h *SyncHandler) Job(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}
	if h.jobs == nil {
		h.HandleError(c, scheduler.ErrJobNotFound)
		return
	}
	job, err := h.jobs.Job(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}
