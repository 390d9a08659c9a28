package router

import (
	"context"
	"sort"
	"sync"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/thumbnail"
)

// Handler produces derivatives for the sources it recognizes.
type Handler interface {
	// Name identifies the handler for Unregister and logging.
	Name() string

	// CanHandle probes whether the handler accepts a source URL.
	CanHandle(ctx context.Context, url string) bool

	// GenerateThumbnails writes one derivative per option, in option order.
	// Failures are reported in the result, never returned.
	GenerateThumbnails(ctx context.Context, sourceURL string, options []thumbnail.Option) thumbnail.GenerationResult
}

// AllowList is the allowed-format check run before any handler is probed.
type AllowList interface {
	IsAllowed(url string) bool
}

// Built-in priorities. Higher is probed first, so SVGs never reach the
// raster handler.
const (
	PrioritySVG    = 100
	PriorityRaster = 10
)

type registration struct {
	handler  Handler
	priority int
	seq      int
}

// Router selects the handler for a source URL.
type Router struct {
	allowed AllowList

	mu       sync.RWMutex
	handlers []registration
	nextSeq  int
}

// New creates a router with no handlers.
func New(allowed AllowList) *Router {
	return &Router{allowed: allowed}
}

// Register adds a handler, replacing any handler with the same name. Among
// equal priorities the earlier registration wins.
func (r *Router) Register(h Handler, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(h.Name())
	r.handlers = append(r.handlers, registration{handler: h, priority: priority, seq: r.nextSeq})
	r.nextSeq++

	sort.SliceStable(r.handlers, func(i, j int) bool {
		if r.handlers[i].priority != r.handlers[j].priority {
			return r.handlers[i].priority > r.handlers[j].priority
		}
		return r.handlers[i].seq < r.handlers[j].seq
	})

	logging.Debug("Router: registered handler %s (priority %d)", h.Name(), priority)
}

// Unregister removes the named handler and reports whether it was present.
func (r *Router) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(name)
}

func (r *Router) removeLocked(name string) bool {
	for i, reg := range r.handlers {
		if reg.handler.Name() == name {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Select returns the first handler, in priority order, that accepts url.
// Disallowed extensions never reach a handler.
func (r *Router) Select(ctx context.Context, url string) (Handler, bool) {
	if r.allowed != nil && !r.allowed.IsAllowed(url) {
		return nil, false
	}

	// Probe outside the lock so a slow CanHandle cannot block registration
	r.mu.RLock()
	snapshot := make([]Handler, len(r.handlers))
	for i, reg := range r.handlers {
		snapshot[i] = reg.handler
	}
	r.mu.RUnlock()

	for _, h := range snapshot {
		if h.CanHandle(ctx, url) {
			return h, true
		}
	}
	return nil, false
}

// Handlers returns the registered handler names in priority order.
func (r *Router) Handlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.handlers))
	for i, reg := range r.handlers {
		names[i] = reg.handler.Name()
	}
	return names
}
