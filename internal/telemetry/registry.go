package telemetry

import "sync"

// Registry tracks which instrumentation points have been installed so that
// repeated setup calls never double-wrap or double-count. It is written only
// during setup and read-only afterwards.
type Registry struct {
	mu        sync.Mutex
	installed map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{installed: make(map[string]struct{})}
}

// Once returns true the first time it is called with key and false on every
// subsequent call. Safe for concurrent first use.
func (r *Registry) Once(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.installed[key]; ok {
		return false
	}
	r.installed[key] = struct{}{}
	return true
}

// Installed reports whether key has been claimed.
func (r *Registry) Installed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.installed[key]
	return ok
}

// defaultRegistry is the process-wide registry used by Setup and the
// instrumentation adapters. Never reset except by process restart.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide instrumentation registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
