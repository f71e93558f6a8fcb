package chartconfig

import (
	"fmt"
	"sort"
	"sync"

	"github.com/comalice/statesvc/internal/core"
)

// Registry maps the names used by "run" actions to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]core.Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]core.Handler)}
}

// Register adds h under name, replacing any previous handler.
func (r *Registry) Register(name string, h core.Handler) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return r
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (core.Handler, error) {
	if r == nil {
		return nil, fmt.Errorf("action %q not registered", name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok || h == nil {
		return nil, fmt.Errorf("action %q not registered", name)
	}
	return h, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
