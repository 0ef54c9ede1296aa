package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	plotapp "github.com/landplots/backend/internal/application/plot"
)

// PlotSyncer is the part of the plot service a sync job drives
type PlotSyncer interface {
	SheetsEnabled() bool
	SyncAll(ctx context.Context) (plotapp.BatchResult, error)
	Pull(ctx context.Context) (plotapp.LoadResult, error)
}

// PlotSyncExecutor runs sync jobs against the plot service
type PlotSyncExecutor struct {
	plots  PlotSyncer
	logger *zap.Logger
}

// NewPlotSyncExecutor creates a new executor
func NewPlotSyncExecutor(plots PlotSyncer, logger *zap.Logger) *PlotSyncExecutor {
	return &PlotSyncExecutor{plots: plots, logger: logger}
}

// Execute pushes or pulls. Jobs found with sheets disabled are skipped.
func (e *PlotSyncExecutor) Execute(ctx context.Context, job *SyncJob) (Result, error) {
	if !e.plots.SheetsEnabled() {
		return Result{}, fmt.Errorf("%w: sheets disabled", ErrJobSkipped)
	}

	switch job.Type {
	case JobTypePush:
		r, err := e.plots.SyncAll(ctx)
		if errors.Is(err, plotapp.ErrSheetsDisabled) {
			return Result{}, fmt.Errorf("%w: sheets disabled", ErrJobSkipped)
		}
		if err != nil {
			return Result{}, err
		}
		if ctx.Err() != nil && r.Saved+r.Failed < r.Total {
			return Result{}, fmt.Errorf("push interrupted after %d of %d plots: %w", r.Saved+r.Failed, r.Total, ctx.Err())
		}
		return Result{Total: r.Total, Saved: r.Saved, Failed: r.Failed}, nil

	case JobTypePull:
		r, err := e.plots.Pull(ctx)
		if errors.Is(err, plotapp.ErrSheetsDisabled) {
			return Result{}, fmt.Errorf("%w: sheets disabled", ErrJobSkipped)
		}
		if err != nil {
			return Result{}, fmt.Errorf("pull plots: %w", err)
		}
		e.logger.Debug("Plots pulled", zap.Int("count", r.Count))
		return Result{Total: r.Count, Saved: r.Count}, nil
	}
	return Result{}, fmt.Errorf("unknown job type %q", job.Type)
}
