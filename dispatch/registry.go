package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marcelsud/webhook-dispatch/event"
)

// Handler is the callback interface exposed to integrators.
// Errors are caught and logged by the dispatcher, never propagated to
// the webhook sender. Handlers must honor ctx for their own I/O.
type Handler func(ctx context.Context, evt event.Event) error

/* Registration represents one registered callback
 * A nil EventType means the handler receives all event types
 * Higher Priority runs first; ties keep registration order
 */
type Registration struct {
	Name      string
	EventType *event.Type
	Priority  int
	Handler   Handler
}

// HandlerInfo is the introspection view of a registration
type HandlerInfo struct {
	Name      string `json:"name"`
	EventType string `json:"event_type,omitempty"`
	Priority  int    `json:"priority"`
}

type Registry struct {
	mu   sync.RWMutex
	regs []Registration
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{}
}

/* Register adds a named handler
 * Duplicate names fail explicitly rather than silently overwriting, to
 * avoid accidental handler shadowing
 */
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if reg.Handler == nil {
		return fmt.Errorf("handler callback cannot be nil for %s", reg.Name)
	}
	if reg.EventType != nil {
		if err := reg.EventType.Validate(); err != nil {
			return fmt.Errorf("invalid event type for handler %s: %w", reg.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.regs {
		if existing.Name == reg.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, reg.Name)
		}
	}

	r.regs = append(r.regs, reg)

	// Re-sort on every registration: registration is rare relative to
	// dispatch, and a stable sort preserves registration order for ties
	sort.SliceStable(r.regs, func(i, j int) bool {
		return r.regs[i].Priority > r.regs[j].Priority
	})

	return nil
}

// Unregister removes a handler by name, returning true if it was present
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, reg := range r.regs {
		if reg.Name == name {
			r.regs = append(r.regs[:i], r.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Match returns the registrations for an event type in dispatch order
func (r *Registry) Match(t event.Type) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Registration, 0, len(r.regs))
	for _, reg := range r.regs {
		if reg.EventType == nil || *reg.EventType == t {
			matched = append(matched, reg)
		}
	}
	return matched
}

// Len returns the number of registered handlers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// List returns introspection info for all handlers in dispatch order
func (r *Registry) List() []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]HandlerInfo, 0, len(r.regs))
	for _, reg := range r.regs {
		info := HandlerInfo{
			Name:     reg.Name,
			Priority: reg.Priority,
		}
		if reg.EventType != nil {
			info.EventType = reg.EventType.String()
		}
		infos = append(infos, info)
	}
	return infos
}
