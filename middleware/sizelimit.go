package middleware

import (
	"context"
	"fmt"

	"github.com/slunk/slunk-mcp/protocol"
)

// Size limit presets.
const (
	KB = 1024
	MB = 1024 * KB
)

// SizeLimitOption configures SizeLimit.
type SizeLimitOption func(*sizeLimit)

type sizeLimit struct {
	maxBytes int64
	logger   Logger
}

// WithSizeLimitLogger logs rejected requests to l.
func WithSizeLimitLogger(l Logger) SizeLimitOption {
	return func(s *sizeLimit) {
		s.logger = l
	}
}

// SizeLimit returns middleware that rejects requests whose params exceed
// maxBytes. The line decoder already caps total line length; this guards
// the handler against oversized argument payloads specifically.
func SizeLimit(maxBytes int64, opts ...SizeLimitOption) Middleware {
	s := &sizeLimit{maxBytes: maxBytes}
	for _, opt := range opts {
		opt(s)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if size := int64(len(req.Params)); size > s.maxBytes {
				if s.logger != nil {
					s.logger.Warn("request over size limit",
						F("method", req.Method),
						F("size", size),
						F("max", s.maxBytes),
					)
				}
				return nil, &protocol.Error{
					Code:    protocol.CodeInvalidRequest,
					Message: fmt.Sprintf("params of %d bytes exceed the %d byte limit", size, s.maxBytes),
				}
			}
			return next(ctx, req)
		}
	}
}
