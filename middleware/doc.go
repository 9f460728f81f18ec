// Package middleware wraps slunk request handlers with cross-cutting
// behavior: panic recovery, request IDs, logging, deadlines, rate and size
// limits, and OpenTelemetry instrumentation.
//
// Each Middleware wraps the next HandlerFunc; Chain composes them with the
// first listed middleware outermost:
//
//	handler := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)(base)
//
// DefaultStack and DefaultStackWithTimeout return the stacks the slunk
// binary serves with. RateLimit (token bucket, CodeRateLimited on
// rejection), SizeLimit, and OTel are opt-in additions.
package middleware
