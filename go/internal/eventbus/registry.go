package eventbus

import (
	"sort"
	"sync"

	"github.com/mcdev12/placehub/go/internal/events"
)

// Registration pairs a handler with the name it was registered under. The
// name identifies the handler for idempotent subscribe/unsubscribe and in
// logs.
type Registration struct {
	Name    string
	Handler events.Handler
}

// SubscriptionRegistry maps event type names to handler registrations and to
// the factories used to decode payloads by name. It is a pure in-memory
// table, rebuilt by startup code on every process start, and safe for
// concurrent use from publish and dispatch goroutines.
type SubscriptionRegistry struct {
	mu        sync.RWMutex
	handlers  map[string][]Registration
	factories map[string]events.Factory
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		handlers:  make(map[string][]Registration),
		factories: make(map[string]events.Factory),
	}
}

// RegisterType makes eventType decodable by name.
func (r *SubscriptionRegistry) RegisterType(eventType string, f events.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[eventType] = f
}

// ResolveType returns the factory registered for the short event type name.
func (r *SubscriptionRegistry) ResolveType(eventType string) (events.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[eventType]
	return f, ok
}

// Subscribe adds a handler registration for eventType. Adding the same
// handler name twice is a no-op, so startup code may re-run registrations
// freely.
func (r *SubscriptionRegistry) Subscribe(eventType, handlerName string, h events.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.handlers[eventType] {
		if reg.Name == handlerName {
			return
		}
	}
	r.handlers[eventType] = append(r.handlers[eventType], Registration{Name: handlerName, Handler: h})
}

// Unsubscribe removes the handler registered under handlerName, if present.
func (r *SubscriptionRegistry) Unsubscribe(eventType, handlerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.handlers[eventType]
	for i, reg := range regs {
		if reg.Name == handlerName {
			r.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(r.handlers[eventType]) == 0 {
		delete(r.handlers, eventType)
	}
}

// HandlersFor returns a snapshot of the registrations for eventType, in
// subscription order. Empty slice when none.
func (r *SubscriptionRegistry) HandlersFor(eventType string) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.handlers[eventType]
	out := make([]Registration, len(regs))
	copy(out, regs)
	return out
}

func (r *SubscriptionRegistry) HasSubscriptionsFor(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventType]) > 0
}

// SubscribedTypes returns the event types with at least one handler, sorted
// for deterministic consumer binding.
func (r *SubscriptionRegistry) SubscribedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
