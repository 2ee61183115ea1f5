// internal/delivery/registry.go
package delivery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/user/incidentbot/internal/types"
)

// Notification is what a mirror receives: the rendered text plus the
// record it was rendered from.
type Notification struct {
	Incident *types.Incident
	Text     string
}

// Handler delivers a notification to a target such as "slack:C0123".
type Handler func(ctx context.Context, target string, n Notification) error

// Registry routes notifications to the appropriate delivery handler based on
// target prefix (e.g. "slack:", "discord:", "nats:").
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

// Register adds a handler for targets starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Prefixes returns the registered prefixes in sorted order.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Deliver finds the handler matching the target prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(ctx context.Context, target string, n Notification) error {
	r.mu.RLock()
	var handler Handler
	for prefix, h := range r.handlers {
		if strings.HasPrefix(target, prefix) {
			handler = h
			break
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return fmt.Errorf("no delivery handler for target: %s", target)
	}
	return handler(ctx, target, n)
}

// TargetName strips the prefix from a target ("slack:C01" -> "C01").
func TargetName(target string) string {
	if i := strings.IndexByte(target, ':'); i >= 0 {
		return target[i+1:]
	}
	return target
}

// TargetKind returns the prefix part of a target without the colon.
func TargetKind(target string) string {
	if i := strings.IndexByte(target, ':'); i >= 0 {
		return target[:i]
	}
	return target
}
