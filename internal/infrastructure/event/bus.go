package event

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/shared"
	"github.com/landplots/backend/internal/infrastructure/logger"
)

// ErrBusStopped is returned when publishing to a stopped asynchronous bus
var ErrBusStopped = errors.New("event bus is stopped")

// InMemoryEventBus dispatches events to registered handlers. By default
// Publish runs handlers inline; WithAsync moves them to background workers
// so a slow spreadsheet does not hold up the caller. Events of one aggregate
// always land on the same worker and are handled in publish order.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	async   bool
	workers int
	queues  []chan envelope
	running atomic.Bool
	mu      sync.RWMutex // guards queue sends against Stop closing them
	wg      sync.WaitGroup
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsync dispatches on workers goroutines, each reading its own queue of
// size buffer
func WithAsync(workers, buffer int) BusOption {
	return func(b *InMemoryEventBus) {
		if workers < 1 {
			workers = 1
		}
		if buffer < 0 {
			buffer = 0
		}
		b.async = true
		b.workers = workers
		b.queues = make([]chan envelope, workers)
		for i := range b.queues {
			b.queues[i] = make(chan envelope, buffer)
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers. Handler failures are logged and
// never returned; an async bus only fails when it is not running.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.async {
		for _, event := range events {
			b.dispatch(ctx, event)
		}
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return ErrBusStopped
	}
	// detach from the request so the handlers outlive it
	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queues[b.lane(event.AggregateID())] <- envelope{ctx: detached, event: event}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a handler; without explicit types the handler's own
// EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
		zap.Int("handlers", b.registry.Len()),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the workers of an async bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	if b.async {
		for _, q := range b.queues {
			b.wg.Add(1)
			go b.worker(q)
		}
	}
	b.logger.Info("event bus started", zap.Bool("async", b.async), zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting events and waits for queued ones to be handled, or
// for ctx to end.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	wasRunning := b.running.Swap(false)
	if wasRunning && b.async {
		for _, q := range b.queues {
			close(q)
		}
	}
	b.mu.Unlock()
	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Pending returns the number of queued events of an async bus
func (b *InMemoryEventBus) Pending() int {
	n := 0
	for _, q := range b.queues {
		n += len(q)
	}
	return n
}

// lane picks the queue for an aggregate
func (b *InMemoryEventBus) lane(aggregateID string) int {
	if len(b.queues) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(aggregateID))
	return int(h.Sum32() % uint32(len(b.queues)))
}

func (b *InMemoryEventBus) worker(q <-chan envelope) {
	defer b.wg.Done()
	for env := range q {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			logger.WithTraceContext(ctx, b.logger).Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler turns a handler panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
