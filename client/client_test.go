package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/slunk/slunk-mcp/client"
	"github.com/slunk/slunk-mcp/protocol"
)

func TestNew(t *testing.T) {
	t.Run("creates client with transport", func(t *testing.T) {
		transport := &mockTransport{}
		c := client.New(transport)

		if c == nil {
			t.Fatal("expected client to be created")
		}
	})

	t.Run("creates client with options", func(t *testing.T) {
		transport := &mockTransport{}
		c := client.New(transport,
			client.WithTimeout(5*time.Second),
			client.WithClientInfo("test-driver", "1.0.0"),
		)

		if c == nil {
			t.Fatal("expected client to be created")
		}
	})
}

func TestClient_Initialize(t *testing.T) {
	t.Run("performs handshake with server", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Result: map[string]any{
						"protocolVersion": "2024-11-05",
						"serverInfo": map[string]any{
							"name":    "slunk",
							"version": "1.0.0",
						},
						"capabilities": map[string]any{
							"tools": map[string]any{},
						},
					},
				},
			},
		}

		c := client.New(transport)
		info, err := c.Initialize(context.Background())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if info.Name != "slunk" {
			t.Errorf("server name = %q, want %q", info.Name, "slunk")
		}

		if info.Version != "1.0.0" {
			t.Errorf("server version = %q, want %q", info.Version, "1.0.0")
		}

		if !info.Capabilities.Tools {
			t.Error("expected tools capability")
		}

		if got := c.ServerInfo(); got == nil || got.Name != "slunk" {
			t.Errorf("cached server info = %+v, want name slunk", got)
		}
	})

	t.Run("returns error on failed handshake", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Error: &protocol.Error{
						Code:    -32600,
						Message: "invalid request",
					},
				},
			},
		}

		c := client.New(transport)
		_, err := c.Initialize(context.Background())

		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestClient_ListTools(t *testing.T) {
	t.Run("returns list of tools", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Result: map[string]any{
						"tools": []any{
							map[string]any{
								"name":        "ping_slunk",
								"description": "Liveness probe",
								"inputSchema": map[string]any{
									"type": "object",
								},
							},
							map[string]any{
								"name":        "search_messages",
								"description": "Search indexed messages",
								"inputSchema": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"query": map[string]any{"type": "string"},
									},
								},
							},
						},
					},
				},
			},
		}

		c := client.New(transport)
		tools, err := c.ListTools(context.Background())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(tools) != 2 {
			t.Fatalf("expected 2 tools, got %d", len(tools))
		}

		if tools[0].Name != "ping_slunk" || tools[1].Name != "search_messages" {
			t.Errorf("tool order = [%q, %q]", tools[0].Name, tools[1].Name)
		}
	})
}

func TestClient_CallTool(t *testing.T) {
	t.Run("executes tool and returns result", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Result: map[string]any{
						"content": []any{
							map[string]any{
								"type": "text",
								"text": "Pong slunk!",
							},
						},
					},
				},
			},
		}

		c := client.New(transport)
		result, err := c.CallTool(context.Background(), "ping_slunk", nil)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Content) != 1 {
			t.Fatalf("expected 1 content item, got %d", len(result.Content))
		}

		if result.Content[0].Text != "Pong slunk!" {
			t.Errorf("text = %q, want %q", result.Content[0].Text, "Pong slunk!")
		}
	})

	t.Run("returns error for unknown tool", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Error: &protocol.Error{
						Code:    -32001,
						Message: "tool not found",
					},
				},
			},
		}

		c := client.New(transport)
		_, err := c.CallTool(context.Background(), "no_such_tool", nil)

		if err == nil {
			t.Fatal("expected error")
		}

		var perr *protocol.Error
		if !errors.As(err, &perr) || perr.Code != -32001 {
			t.Errorf("error = %v, want protocol error -32001", err)
		}
	})

	t.Run("maps deadline to ErrTimeout", func(t *testing.T) {
		transport := &mockTransport{}

		c := client.New(transport)
		_, err := c.CallTool(context.Background(), "ping_slunk", nil)

		if !errors.Is(err, client.ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", err)
		}
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("pings server successfully", func(t *testing.T) {
		transport := &mockTransport{
			responses: []protocol.Response{
				{
					JSONRPC: "2.0",
					ID:      json.RawMessage(`1`),
					Result:  map[string]any{},
				},
			},
		}

		c := client.New(transport)
		err := c.Ping(context.Background())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// mockTransport implements client.Transport for testing. When it runs out
// of scripted responses it reports a deadline, like a driver whose wait
// budget ran out.
type mockTransport struct {
	responses []protocol.Response
	requests  []protocol.Request
	idx       int
}

func (m *mockTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	m.requests = append(m.requests, *req)
	if m.idx >= len(m.responses) {
		return nil, context.DeadlineExceeded
	}
	resp := m.responses[m.idx]
	m.idx++
	return &resp, nil
}

func (m *mockTransport) Close() error {
	return nil
}
