// Package testutil provides testing utilities for slunk servers.
//
// The TestClient drives the real request handler in memory, so tests
// exercise the same dispatch, session gating, and error mapping that the
// stdio transport would.
//
// Example usage:
//
//	func TestMyServer(t *testing.T) {
//	    srv := slunk.NewServer(slunk.ServerInfo{Name: "slunk", Version: "1.0.0"})
//	    srv.Tool("greet").Handler(func(ctx context.Context, input GreetInput) (string, error) {
//	        return "Hello, " + input.Name, nil
//	    })
//
//	    tc := testutil.NewTestClient(t, srv)
//	    defer tc.Close()
//
//	    result, err := tc.CallTool("greet", map[string]any{"name": "World"})
//	    ...
//	}
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	slunk "github.com/slunk/slunk-mcp"
	"github.com/slunk/slunk-mcp/protocol"
	"github.com/slunk/slunk-mcp/server"
	"github.com/slunk/slunk-mcp/transport"
)

// TestClient is an in-memory driver for slunk servers.
type TestClient struct {
	t       testing.TB
	handler transport.Handler
	reqID   int64
	mu      sync.Mutex
}

// NewTestClient creates a test client for the given server and performs the
// initialize handshake.
func NewTestClient(t testing.TB, srv *server.Server) *TestClient {
	t.Helper()

	tc := &TestClient{
		t:       t,
		handler: slunk.NewHandler(srv),
	}

	if _, err := tc.Initialize(); err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}

	return tc
}

// NewTestClientWithHandler creates a test client with a custom handler.
// This is useful for testing middleware. No handshake is performed.
func NewTestClientWithHandler(t testing.TB, handler transport.Handler) *TestClient {
	t.Helper()
	return &TestClient{
		t:       t,
		handler: handler,
	}
}

// Close closes the test client. The in-memory client has nothing to
// release; the method exists so tests read like driver code.
func (tc *TestClient) Close() {
}

func (tc *TestClient) nextID() json.RawMessage {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.reqID++
	return json.RawMessage(fmt.Sprintf("%d", tc.reqID))
}

// SendRequest sends a raw request and returns the response.
func (tc *TestClient) SendRequest(method string, params any) (*protocol.Response, error) {
	tc.t.Helper()

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsData = data
	}

	req := &protocol.Request{
		JSONRPC: "2.0",
		ID:      tc.nextID(),
		Method:  method,
		Params:  paramsData,
	}

	return tc.handler.HandleRequest(context.Background(), req)
}

// SendNotification sends a notification. Notifications have no ID and no
// response; only a handler error is reported.
func (tc *TestClient) SendNotification(method string, params any) error {
	tc.t.Helper()

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsData = data
	}

	req := &protocol.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsData,
	}

	_, err := tc.handler.HandleRequest(context.Background(), req)
	return err
}

// Initialize sends an initialize request to the server.
func (tc *TestClient) Initialize() (map[string]any, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.Version,
		"clientInfo": map[string]any{
			"name":    "test-driver",
			"version": "1.0.0",
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	return result, nil
}

// ListTools lists all available tools, in registration order.
func (tc *TestClient) ListTools() ([]map[string]any, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	// Handle both []any (from JSON) and []map[string]any (from direct call)
	var toolMaps []map[string]any
	switch v := result["tools"].(type) {
	case []any:
		toolMaps = make([]map[string]any, len(v))
		for i, t := range v {
			toolMaps[i], _ = t.(map[string]any)
		}
	case []map[string]any:
		toolMaps = v
	default:
		return nil, fmt.Errorf("unexpected tools type: %T", result["tools"])
	}

	return toolMaps, nil
}

// CallTool calls a tool with the given arguments and returns the text result.
func (tc *TestClient) CallTool(name string, args any) (string, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodToolsCall, map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	// Handle both []any (from JSON) and []map[string]any (from direct call)
	var first map[string]any
	switch v := result["content"].(type) {
	case []any:
		if len(v) == 0 {
			return "", fmt.Errorf("empty content array")
		}
		first, _ = v[0].(map[string]any)
	case []map[string]any:
		if len(v) == 0 {
			return "", fmt.Errorf("empty content array")
		}
		first = v[0]
	default:
		return "", fmt.Errorf("unexpected content type: %T", result["content"])
	}

	if first == nil {
		return "", fmt.Errorf("nil content item")
	}

	text, _ := first["text"].(string)
	return text, nil
}

// CallToolRaw calls a tool and returns the raw response.
func (tc *TestClient) CallToolRaw(name string, args any) (*protocol.Response, error) {
	tc.t.Helper()

	return tc.SendRequest(protocol.MethodToolsCall, map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// Ping sends a ping request.
func (tc *TestClient) Ping() error {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodPing, nil)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}

	return nil
}

// AssertToolExists asserts that a tool with the given name exists.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()

	tools, err := tc.ListTools()
	if err != nil {
		tc.t.Fatalf("ListTools failed: %v", err)
	}

	for _, tool := range tools {
		if tool["name"] == name {
			return
		}
	}
	tc.t.Errorf("tool %q not found", name)
}

// MockTransport is an in-memory line buffer pair mimicking the stdio
// streams of a server process.
type MockTransport struct {
	in  *bytes.Buffer
	out *bytes.Buffer
	mu  sync.Mutex
}

// NewMockTransport creates a new mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		in:  &bytes.Buffer{},
		out: &bytes.Buffer{},
	}
}

// Write writes a request line to the mock transport input.
func (m *MockTransport) Write(req *protocol.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if _, err := m.in.Write(data); err != nil {
		return err
	}
	_, err = m.in.WriteString("\n")
	return err
}

// WriteRaw writes an arbitrary line to the mock transport input. Use it to
// feed malformed or non-protocol lines.
func (m *MockTransport) WriteRaw(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.in.WriteString(line + "\n")
	return err
}

// ReadResponse reads the next response line from the mock transport output.
func (m *MockTransport) ReadResponse() (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	line, err := m.out.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(line) == 0 {
		return nil, io.EOF
	}

	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Input returns the input reader.
func (m *MockTransport) Input() io.Reader {
	return m.in
}

// Output returns the output writer.
func (m *MockTransport) Output() io.Writer {
	return m.out
}
