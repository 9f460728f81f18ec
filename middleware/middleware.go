package middleware

import (
	"context"
	"time"

	"github.com/slunk/slunk-mcp/protocol"
)

// HandlerFunc handles a single decoded request and produces either a
// response or an error. Transports turn the error into a JSON-RPC error
// response before writing it out.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one. The first middleware listed is the
// outermost wrapper, so Chain(a, b)(h) runs a, then b, then h.
func Chain(middlewares ...Middleware) Middleware {
	return func(inner HandlerFunc) HandlerFunc {
		wrapped := inner
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		return wrapped
	}
}

// DefaultStack is the stack the slunk binary runs with when no timeout is
// configured: panic recovery outermost, then request IDs, then logging.
func DefaultStack(logger Logger) []Middleware {
	return []Middleware{
		Recover(),
		RequestID(),
		Logging(logger),
	}
}

// DefaultStackWithTimeout is DefaultStack plus a per-request deadline,
// applied inside the request ID middleware so timeout logs carry the ID.
func DefaultStackWithTimeout(logger Logger, timeout time.Duration) []Middleware {
	return []Middleware{
		Recover(),
		RequestID(),
		Timeout(timeout),
		Logging(logger),
	}
}
