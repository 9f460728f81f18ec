package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/slunk/slunk-mcp/protocol"
)

// Logger is the structured logging interface the middleware writes to.
// The slunk binary adapts log/slog to it; tests use NopLogger.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field is one key-value pair on a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logging returns middleware that emits one line per handled request:
// method, duration in milliseconds, request ID when present, and on
// failure the error with its JSON-RPC code.
func Logging(logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			fields := []Field{
				F("method", req.Method),
				F("duration_ms", time.Since(start).Milliseconds()),
			}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, F("request_id", id))
			}

			if err != nil {
				fields = append(fields, F("error", err.Error()))
				var perr *protocol.Error
				if errors.As(err, &perr) {
					fields = append(fields, F("code", perr.Code))
				}
				logger.Error("request failed", fields...)
			} else {
				logger.Info("request handled", fields...)
			}

			return resp, err
		}
	}
}

// NopLogger discards everything. Useful as a default and in benchmarks.
type NopLogger struct{}

func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Warn(string, ...Field)  {}
