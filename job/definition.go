package job

import "context"

// Definition is a typed handler definition registered under a handler path.
// T is the payload type (must be JSON-serializable).
type Definition[T any] struct {
	// Path is the handler path jobs address, e.g. "mailer".
	Path string

	// Method is the method name; empty means DefaultMethod.
	Method string

	// Handler processes the payload. It reports success with true.
	Handler func(ctx context.Context, payload T) (bool, error)
}

// NewDefinition creates a typed definition for the default method.
func NewDefinition[T any](path string, handler func(ctx context.Context, payload T) (bool, error)) *Definition[T] {
	return &Definition[T]{Path: path, Handler: handler}
}

// NewMethodDefinition creates a typed definition for a named method.
func NewMethodDefinition[T any](path, method string, handler func(ctx context.Context, payload T) (bool, error)) *Definition[T] {
	return &Definition[T]{Path: path, Method: method, Handler: handler}
}
