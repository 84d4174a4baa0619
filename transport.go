package records

import (
	"context"
	"fmt"
)

// Request is a fully resolved transport call.
type Request struct {
	// ID is a ULID correlating logs and the outgoing request.
	ID     string
	Scope  Scope
	Op     string
	URL    string
	Method string
	// Params holds the structured payload. For GET it becomes the query
	// string; otherwise it is the body unless Body is set.
	Params map[string]any
	// Body holds the serialized JSON payload when the operation opts in.
	Body []byte
	JSON bool
}

// Transport performs network I/O for a model. Cancelling ctx aborts the
// request in flight.
type Transport interface {
	Do(ctx context.Context, req Request) (any, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (any, error)

// Do implements Transport.
func (fn TransportFunc) Do(ctx context.Context, req Request) (any, error) {
	if fn == nil {
		return nil, ErrNoTransport
	}
	return fn(ctx, req)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Status int
	URL    string
	Body   any
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("records: %s responded %d", e.URL, e.Status)
}
