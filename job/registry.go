package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc is a type-erased handler that accepts the raw JSON payload.
// It reports success with true; false or an error triggers a retry.
type HandlerFunc func(ctx context.Context, payload []byte) (bool, error)

// Performer is an object exposing the default handler method.
type Performer interface {
	Perform(ctx context.Context, payload []byte) (bool, error)
}

// Registry maps handler paths and method names to handler functions.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Target]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Target]HandlerFunc),
	}
}

// Register adds a performer under path for the default method.
func (r *Registry) Register(path string, p Performer) {
	r.RegisterFunc(path, DefaultMethod, p.Perform)
}

// RegisterFunc adds fn under path and method. An empty method means
// DefaultMethod.
func (r *Registry) RegisterFunc(path, method string, fn HandlerFunc) {
	if method == "" {
		method = DefaultMethod
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[Target{Path: path, Method: method}] = fn
}

// RegisterDefinition registers a typed definition. The typed handler is
// wrapped in a closure that JSON-unmarshals the payload into T first; an
// unmarshal failure counts as a failed attempt.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	handler := func(ctx context.Context, payload []byte) (bool, error) {
		var t T
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &t); err != nil {
				return false, fmt.Errorf("unmarshal payload for %q: %w", def.Path, err)
			}
		}
		return def.Handler(ctx, t)
	}
	r.RegisterFunc(def.Path, def.Method, handler)
}

// Lookup returns the handler for the given target.
// Returns false if none is registered.
func (r *Registry) Lookup(t Target) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Names returns every registered target as "path/method", sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		names = append(names, t.Path+"/"+t.Method)
	}
	sort.Strings(names)
	return names
}
