package middleware

import (
	"context"
	"fmt"

	"github.com/slunk/slunk-mcp/protocol"
)

// PanicHandler turns a recovered panic into a response or error.
type PanicHandler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)

// Recover returns middleware that catches panics in tool handlers and maps
// them to internal errors, so one bad handler cannot take down the serve
// loop.
func Recover() Middleware {
	return RecoverWithHandler(func(_ context.Context, _ *protocol.Request, panicVal any) (*protocol.Response, error) {
		return nil, protocol.NewInternalError(fmt.Sprintf("panic: %v", panicVal))
	})
}

// RecoverWithHandler is Recover with a custom panic handler, for callers
// that want to log or page before the error response goes out.
func RecoverWithHandler(handler PanicHandler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = handler(ctx, req, r)
				}
			}()
			return next(ctx, req)
		}
	}
}
