package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slunk/slunk-mcp/protocol"
)

func TestTimeout_FastHandler(t *testing.T) {
	handler := Timeout(time.Second)(okHandler)
	resp, err := handler(context.Background(), callRequest("1"))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if resp.Result != "ok" {
		t.Errorf("result = %v, want ok", resp.Result)
	}
}

func TestTimeout_SlowHandler(t *testing.T) {
	handler := Timeout(10 * time.Millisecond)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return protocol.NewResponse(req.ID, nil), nil
		}
	})

	_, err := handler(context.Background(), callRequest("1"))
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var perr *protocol.Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %T, want *protocol.Error", err)
	}
	if perr.Code != protocol.CodeInternalError {
		t.Errorf("code = %d, want %d", perr.Code, protocol.CodeInternalError)
	}
	if !strings.Contains(perr.Message, "timed out") {
		t.Errorf("message = %q, want mention of timed out", perr.Message)
	}
}

func TestTimeout_PreservesOtherErrors(t *testing.T) {
	want := protocol.NewToolNotFound("tool not found: nope")
	handler := Timeout(time.Second)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return nil, want
	})

	_, err := handler(context.Background(), callRequest("1"))
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeToolNotFound {
		t.Fatalf("err = %v, want tool not found to pass through", err)
	}
}

func TestTimeout_ParentDeadlineWins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	handler := Timeout(time.Minute)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := handler(ctx, callRequest("1"))
	if err == nil {
		t.Fatal("expected error from parent deadline")
	}
}
