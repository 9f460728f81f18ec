package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/slunk/slunk-mcp/protocol"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// RequestID returns middleware that stamps each request with a UUID so log
// lines and trace spans for one call can be correlated. An ID already
// present in the context wins, which lets transports propagate IDs from
// upstream.
func RequestID() Middleware {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator is RequestID with a caller-supplied ID source.
func RequestIDWithGenerator(generate func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, generate())
			}
			return next(ctx, req)
		}
	}
}

// RequestIDFromContext returns the request ID from ctx, or "" if none was
// set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestID returns a child context carrying the given ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
