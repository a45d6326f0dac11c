package dispatch

import (
	"fmt"
	"sync"
)

// Registry is a static map from job_key to handler, resolved at boot and
// read concurrently by worker goroutines thereafter.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a job_key to a handler. Re-registering the same key
// replaces the previous handler, which is useful in tests.
func (r *Registry) Register(jobKey string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobKey] = handler
}

// Lookup returns the handler registered for jobKey, if any.
func (r *Registry) Lookup(jobKey string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobKey]
	return h, ok
}

// MustRegister panics on a duplicate key; used for handlers wired at
// program startup where a collision is a programming error.
func (r *Registry) MustRegister(jobKey string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[jobKey]; exists {
		panic(fmt.Sprintf("dispatch: handler already registered for job_key %q", jobKey))
	}
	r.handlers[jobKey] = handler
}
