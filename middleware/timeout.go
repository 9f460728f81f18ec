package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slunk/slunk-mcp/protocol"
)

// Timeout returns middleware that bounds each request with a deadline.
// A handler that overruns it gets its context canceled; the resulting
// context.DeadlineExceeded is mapped to an internal error so the client
// receives a proper error response instead of silence.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			resp, err := next(ctx, req)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				return nil, protocol.NewInternalError(fmt.Sprintf("request timed out after %s", d))
			}
			return resp, err
		}
	}
}
