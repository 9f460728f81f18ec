package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slunk/slunk-mcp/protocol"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name     string
		panicVal any
		wantMsg  string
	}{
		{"string panic", "index out of range", "index out of range"},
		{"error panic", errors.New("nil store"), "nil store"},
		{"int panic", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Recover()(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
				panic(tt.panicVal)
			})

			resp, err := handler(context.Background(), callRequest("1"))
			if resp != nil {
				t.Errorf("resp = %v, want nil", resp)
			}
			if err == nil {
				t.Fatal("expected error from recovered panic")
			}

			var perr *protocol.Error
			if !errors.As(err, &perr) {
				t.Fatalf("err = %T, want *protocol.Error", err)
			}
			if perr.Code != protocol.CodeInternalError {
				t.Errorf("code = %d, want %d", perr.Code, protocol.CodeInternalError)
			}
			if !strings.Contains(perr.Message, tt.wantMsg) {
				t.Errorf("message %q does not mention %q", perr.Message, tt.wantMsg)
			}
		})
	}
}

func TestRecover_PassesThroughSuccess(t *testing.T) {
	handler := Recover()(okHandler)
	resp, err := handler(context.Background(), callRequest("1"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if resp.Result != "ok" {
		t.Errorf("result = %v, want ok", resp.Result)
	}
}

func TestRecoverWithHandler(t *testing.T) {
	var captured any
	custom := func(_ context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error) {
		captured = panicVal
		return protocol.NewResponse(req.ID, "degraded"), nil
	}

	handler := RecoverWithHandler(custom)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		panic("search index corrupt")
	})

	resp, err := handler(context.Background(), callRequest("1"))
	if err != nil {
		t.Fatalf("custom handler should swallow the panic: %v", err)
	}
	if resp.Result != "degraded" {
		t.Errorf("result = %v, want degraded", resp.Result)
	}
	if captured != "search index corrupt" {
		t.Errorf("captured = %v, want the panic value", captured)
	}
}
