package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/slunk/slunk-mcp/protocol"
)

func TestToolBuilder_Handler(t *testing.T) {
	tests := []struct {
		name    string
		handler any
		wantErr string
	}{
		{
			name:    "valid single param handler",
			handler: func(input pingInput) (string, error) { return "", nil },
		},
		{
			name:    "valid context handler",
			handler: func(ctx context.Context, input searchInput) (string, error) { return "", nil },
		},
		{
			name:    "not a function",
			handler: 42,
			wantErr: "must be a function",
		},
		{
			name:    "too many params",
			handler: func(a, b, c string) (string, error) { return "", nil },
			wantErr: "1 or 2 parameters",
		},
		{
			name:    "first param not context",
			handler: func(a string, input pingInput) (string, error) { return "", nil },
			wantErr: "context.Context",
		},
		{
			name:    "wrong return count",
			handler: func(input pingInput) string { return "" },
			wantErr: "(result, error)",
		},
		{
			name:    "second return not error",
			handler: func(input pingInput) (string, string) { return "", "" },
			wantErr: "must be error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Info{Name: "slunk", Version: "1.0.0"})
			b := srv.Tool("t").Handler(tt.handler)

			if tt.wantErr == "" {
				if b.Err() != nil {
					t.Fatalf("unexpected error: %v", b.Err())
				}
				if _, ok := srv.GetTool("t"); !ok {
					t.Error("expected tool to be registered")
				}
				return
			}

			if b.Err() == nil {
				t.Fatal("expected builder error")
			}
			if !strings.Contains(b.Err().Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", b.Err(), tt.wantErr)
			}
			if _, ok := srv.GetTool("t"); ok {
				t.Error("invalid tool should not be registered")
			}
		})
	}
}

func TestTool_Execute(t *testing.T) {
	srv := newTestServer()
	tool, _ := srv.GetTool("search_messages")

	t.Run("valid arguments", func(t *testing.T) {
		result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"deploy","limit":5}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "results for deploy" {
			t.Errorf("result = %v, want %q", result, "results for deploy")
		}
	})

	t.Run("missing required key", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), json.RawMessage(`{"limit":5}`))
		if err == nil {
			t.Fatal("expected error")
		}
		var perr *protocol.Error
		if !errors.As(err, &perr) || perr.Code != protocol.CodeInvalidParams {
			t.Errorf("error = %v, want invalid params", err)
		}
	})

	t.Run("wrong value kind", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":7}`))
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, protocol.NewInvalidParams("")) {
			t.Errorf("error = %v, want invalid params code", err)
		}
	})

	t.Run("empty arguments default to empty object", func(t *testing.T) {
		ping, _ := srv.GetTool("ping_slunk")
		result, err := ping.Execute(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "Pong slunk!" {
			t.Errorf("result = %v, want %q", result, "Pong slunk!")
		}
	})
}

func TestTool_Execute_ContextPropagation(t *testing.T) {
	srv := New(Info{Name: "slunk", Version: "1.0.0"})

	type key struct{}
	var seen any
	srv.Tool("ctx_tool").Handler(func(ctx context.Context, input pingInput) (string, error) {
		seen = ctx.Value(key{})
		return "ok", nil
	})

	tool, _ := srv.GetTool("ctx_tool")
	ctx := context.WithValue(context.Background(), key{}, "threaded")
	if _, err := tool.Execute(ctx, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "threaded" {
		t.Errorf("context value = %v, want threaded", seen)
	}
}

func TestTool_Execute_HandlerError(t *testing.T) {
	srv := New(Info{Name: "slunk", Version: "1.0.0"})

	wantErr := errors.New("store unavailable")
	srv.Tool("failing").Handler(func(input pingInput) (string, error) {
		return "", wantErr
	})

	tool, _ := srv.GetTool("failing")
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}
