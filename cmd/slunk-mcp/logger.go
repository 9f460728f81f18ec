package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/slunk/slunk-mcp/middleware"
)

// slogLogger adapts log/slog to the middleware.Logger interface. It writes
// to the diagnostic stream only; the protocol stream never sees log lines.
type slogLogger struct {
	l *slog.Logger
}

// NewLogger creates a structured logger writing to w at the given level.
func NewLogger(w io.Writer, level string) middleware.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return &slogLogger{l: slog.New(handler)}
}

func (s *slogLogger) Debug(msg string, fields ...middleware.Field) {
	s.l.Debug(msg, attrs(fields)...)
}

func (s *slogLogger) Info(msg string, fields ...middleware.Field) {
	s.l.Info(msg, attrs(fields)...)
}

func (s *slogLogger) Warn(msg string, fields ...middleware.Field) {
	s.l.Warn(msg, attrs(fields)...)
}

func (s *slogLogger) Error(msg string, fields ...middleware.Field) {
	s.l.Error(msg, attrs(fields)...)
}

func attrs(fields []middleware.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
