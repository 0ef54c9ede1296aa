package event

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/shared"
)

// DedupCounts tallies the decisions of one or more IdempotentHandlers
type DedupCounts struct {
	handled   atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// DedupStats is a point-in-time copy of DedupCounts
type DedupStats struct {
	Handled   int64 `json:"handled"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

func (c *DedupCounts) Snapshot() DedupStats {
	return DedupStats{
		Handled:   c.handled.Load(),
		Duplicate: c.duplicate.Load(),
		Failed:    c.failed.Load(),
	}
}

// IdempotentHandler handles each event id once per TTL. The key is released
// when the wrapped handler fails so a redelivery is attempted again, and a
// store outage falls through to handling rather than dropping a plot push.
type IdempotentHandler struct {
	next   shared.EventHandler
	store  shared.IdempotencyStore
	ttl    time.Duration
	log    *zap.Logger
	counts *DedupCounts
}

// NewIdempotentHandler wraps next. A ttl of zero or less turns the check off.
// counts may be nil.
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, ttl time.Duration, counts *DedupCounts, log *zap.Logger) *IdempotentHandler {
	if counts == nil {
		counts = &DedupCounts{}
	}
	return &IdempotentHandler{next: next, store: store, ttl: ttl, log: log, counts: counts}
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if h.ttl <= 0 {
		return h.next.Handle(ctx, ev)
	}

	key := ev.EventID().String()
	log := h.log.With(
		zap.String("event_id", key),
		zap.String("event_type", ev.EventType()),
		zap.String("plot_id", ev.AggregateID()),
	)

	fresh, err := h.store.MarkProcessed(ctx, key, h.ttl)
	if err != nil {
		log.Warn("Idempotency store unavailable, handling event", zap.Error(err))
	} else if !fresh {
		h.counts.duplicate.Add(1)
		log.Debug("Duplicate event skipped")
		return nil
	}

	if err := h.next.Handle(ctx, ev); err != nil {
		h.counts.failed.Add(1)
		log.Error("Event handler failed", zap.Error(err))
		if rerr := h.store.Release(ctx, key); rerr != nil {
			log.Warn("Idempotency key not released", zap.Error(rerr))
		}
		return err
	}
	h.counts.handled.Add(1)
	return nil
}

// Counts returns the tally this handler writes to
func (h *IdempotentHandler) Counts() *DedupCounts {
	return h.counts
}

// Unwrap returns the wrapped handler
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.next
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
