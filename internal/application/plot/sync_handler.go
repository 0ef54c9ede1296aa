package plot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/domain/shared"
)

// SheetsSyncHandler pushes changed plots to the spreadsheet. It runs after
// the local change has been applied, so a remote failure is logged and the
// local state is kept.
type SheetsSyncHandler struct {
	remote  RemoteStore
	enabled func() bool
	logger  *zap.Logger
}

// NewSheetsSyncHandler creates the handler. enabled is checked on every
// event so toggling the integration takes effect immediately.
func NewSheetsSyncHandler(remote RemoteStore, enabled func() bool, logger *zap.Logger) *SheetsSyncHandler {
	return &SheetsSyncHandler{
		remote:  remote,
		enabled: enabled,
		logger:  logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *SheetsSyncHandler) EventTypes() []string {
	return []string{plot.EventTypePlotCreated, plot.EventTypePlotUpdated, plot.EventTypePaymentAdded}
}

// Handle implements shared.EventHandler
func (h *SheetsSyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(plot.PlotChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	if !h.enabled() {
		return nil
	}

	p := changed.PlotSnapshot()
	if err := h.remote.SavePlot(ctx, p); err != nil {
		h.logger.Error("Failed to sync plot to Google Sheets",
			zap.String("plot_id", p.ID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return fmt.Errorf("save plot %s: %w", p.ID, err)
	}
	h.logger.Debug("Plot synced to Google Sheets", zap.String("plot_id", p.ID))
	return nil
}

var _ shared.EventHandler = (*SheetsSyncHandler)(nil)
