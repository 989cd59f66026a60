package instruct

import (
	"context"
	"fmt"
	"sync"
)

// Handler is caller-defined logic attached to a schema, invoked explicitly
// after a successful extraction. Handlers live outside the engine: the core
// never calls them on its own.
type Handler func(ctx context.Context, value Instance) error

// HandlerRegistry maps schema identity (the schema name) to a handler.
// Registration and dispatch are safe for concurrent use.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register attaches a handler for the schema. A second Register for the
// same schema replaces the previous handler.
func (r *HandlerRegistry) Register(s *Schema, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[s.Name()] = h
}

// Dispatch invokes the handler registered for the schema with a successful
// result's value. Dispatching a non-success result or an unregistered
// schema is an error.
func (r *HandlerRegistry) Dispatch(ctx context.Context, s *Schema, res *Result) error {
	if res == nil || !res.Succeeded() {
		return fmt.Errorf("dispatch %q: result did not succeed", s.Name())
	}
	r.mu.RLock()
	h, ok := r.handlers[s.Name()]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("dispatch %q: %w", s.Name(), ErrNoHandler)
	}
	return h(ctx, res.Value)
}
