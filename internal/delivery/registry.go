// internal/delivery/registry.go
package delivery

import (
	"fmt"
	"strings"
	"sync"
)

// Handler delivers a rendered message to a target such as "telegram:12345".
type Handler func(target, message string) error

// Registry routes messages to the delivery handler registered for the
// target's prefix (e.g. "telegram:", "log:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for targets starting with prefix, replacing any
// handler already registered for the same prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Prefixes returns the registered prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	return out
}

// Deliver calls the handler with the longest prefix matching target.
func (r *Registry) Deliver(target, message string) error {
	r.mu.RLock()
	var (
		best    Handler
		bestLen = -1
	)
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(target, prefix) && len(prefix) > bestLen {
			best, bestLen = handler, len(prefix)
		}
	}
	r.mu.RUnlock()

	if best == nil {
		return fmt.Errorf("no delivery handler for target: %s", target)
	}
	return best(target, message)
}
