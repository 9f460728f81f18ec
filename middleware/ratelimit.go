package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/slunk/slunk-mcp/protocol"
)

// RateLimitOption configures RateLimit.
type RateLimitOption func(*rateLimiter)

type rateLimiter struct {
	key    func(*protocol.Request) string
	logger Logger
}

// WithRateLimitKeyFunc partitions the limiter by the key fn returns, for
// per-method or per-client buckets instead of one global bucket.
func WithRateLimitKeyFunc(fn func(*protocol.Request) string) RateLimitOption {
	return func(r *rateLimiter) {
		r.key = fn
	}
}

// WithRateLimitLogger logs throttled requests to l.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(r *rateLimiter) {
		r.logger = l
	}
}

// RateLimit returns middleware backed by a token bucket of rate tokens per
// second with the given burst capacity. Throttled requests fail with
// CodeRateLimited so drivers can back off and retry.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	r := &rateLimiter{
		key: func(*protocol.Request) string { return "global" },
	}
	for _, opt := range opts {
		opt(r)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			key := r.key(req)
			if !limiter.Allow(ctx, key) {
				if r.logger != nil {
					r.logger.Warn("rate limit exceeded",
						F("method", req.Method),
						F("key", key),
					)
				}
				return nil, &protocol.Error{
					Code:    protocol.CodeRateLimited,
					Message: "rate limit exceeded",
				}
			}
			return next(ctx, req)
		}
	}
}

// RateLimitByMethod buckets the limiter by request method, so a flood of
// tools/call cannot starve ping.
func RateLimitByMethod(rate int, burst int, opts ...RateLimitOption) Middleware {
	byMethod := WithRateLimitKeyFunc(func(req *protocol.Request) string {
		return req.Method
	})
	return RateLimit(rate, burst, append([]RateLimitOption{byMethod}, opts...)...)
}

// RateLimitByClient buckets the limiter by whatever client identity
// clientID extracts from the request.
func RateLimitByClient(rate int, burst int, clientID func(*protocol.Request) string, opts ...RateLimitOption) Middleware {
	return RateLimit(rate, burst, append([]RateLimitOption{WithRateLimitKeyFunc(clientID)}, opts...)...)
}
