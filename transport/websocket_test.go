package transport

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slunk/slunk-mcp/protocol"
)

// startWebSocket serves the transport on an ephemeral port and returns a
// connected client and a cleanup function.
func startWebSocket(t *testing.T, handler Handler) (*websocket.Conn, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ws := NewWebSocket(addr)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ws.Serve(ctx, handler)
	}()

	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if conn == nil {
		cancel()
		t.Fatalf("failed to connect: %v", err)
	}

	return conn, func() {
		_ = conn.Close()
		cancel()
		<-done
	}
}

func TestWebSocket_Addr(t *testing.T) {
	ws := NewWebSocket("127.0.0.1:9999")
	if ws.Addr() != "127.0.0.1:9999" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9999", ws.Addr())
	}
}

func TestWebSocket_RequestResponse(t *testing.T) {
	conn, cleanup := startWebSocket(t, echoHandler())
	defer cleanup()

	req := protocol.NewRequest(json.RawMessage(`1`), "ping", nil)
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var resp protocol.Response
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if string(resp.ID) != "1" {
		t.Errorf("id = %s, want 1", resp.ID)
	}
	if resp.Result != "success" {
		t.Errorf("result = %v, want success", resp.Result)
	}
}

func TestWebSocket_MalformedMessage(t *testing.T) {
	conn, cleanup := startWebSocket(t, echoHandler())
	defer cleanup()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json}")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var resp protocol.Response
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if resp.Error == nil || resp.Error.Code != protocol.CodeParseError {
		t.Errorf("error = %v, want parse error", resp.Error)
	}
}

func TestWebSocket_HandlerError(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return nil, protocol.NewToolNotFound("tool not found: ghost")
	})

	conn, cleanup := startWebSocket(t, handler)
	defer cleanup()

	req := protocol.NewRequest(json.RawMessage(`3`), "tools/call", nil)
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var resp protocol.Response
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if resp.Error == nil || resp.Error.Code != protocol.CodeToolNotFound {
		t.Errorf("error = %v, want tool not found", resp.Error)
	}
	if string(resp.ID) != "3" {
		t.Errorf("id = %s, want 3", resp.ID)
	}
}
