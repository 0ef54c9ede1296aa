package event

import (
	"slices"
	"sync"

	"github.com/landplots/backend/internal/domain/shared"
)

// subscription is one handler with the event types it accepts. An empty
// type list accepts every event.
type subscription struct {
	handler shared.EventHandler
	types   []string
}

func (s subscription) accepts(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// HandlerRegistry keeps subscriptions in registration order, which is also
// the dispatch order.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to all events when none are
// given. Registering a handler again adds the new types to its subscription;
// an all-events registration stays all-events.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.subs {
		if r.subs[i].handler != handler {
			continue
		}
		if len(r.subs[i].types) == 0 {
			return
		}
		if len(eventTypes) == 0 {
			r.subs[i].types = nil
			return
		}
		for _, t := range eventTypes {
			if !slices.Contains(r.subs[i].types, t) {
				r.subs[i].types = append(r.subs[i].types, t)
			}
		}
		return
	}
	r.subs = append(r.subs, subscription{handler: handler, types: slices.Clone(eventTypes)})
}

// Unregister drops handler's subscription
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool { return s.handler == handler })
}

// GetHandlers returns the handlers accepting eventType in registration order
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.accepts(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// Len returns the number of subscribed handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
