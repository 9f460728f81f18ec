// Package client is the driver side of the slunk protocol: it connects to
// a server over a Transport, performs the initialize handshake, and invokes
// tools. The canonical transport is StdioTransport, which owns the server
// subprocess.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slunk/slunk-mcp/protocol"
)

// ErrTimeout is returned when a call's deadline expires, or when the
// response budget is exhausted before the server produces a well-formed
// response. A timed-out call is terminal for that request; the driver
// reports it and never retries on its own.
var ErrTimeout = errors.New("slunk: call timed out")

// Transport defines the interface for driver-side transport.
type Transport interface {
	// Send sends a request and waits for the matching response.
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	// Close closes the transport connection.
	Close() error
}

// Client drives a slunk server over a Transport.
type Client struct {
	transport Transport
	opts      clientOptions

	mu         sync.RWMutex
	serverInfo *ServerInfo
	requestID  atomic.Int64
}

// ServerInfo contains what the server declared during the handshake.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
	Capabilities    Capabilities
}

// Capabilities describes what features the server supports.
type Capabilities struct {
	Tools bool
}

// Tool represents a tool exposed by the server.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// ToolResult is the result of calling a tool.
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem represents a content item in a tool result.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	clientName  string
	clientVer   string
	protocolVer string
}

// WithTimeout sets the default per-call timeout. Every call gets a bounded
// wait; the zero value disables the client-level deadline and leaves
// bounding to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithClientInfo sets the client name and version sent during the handshake.
func WithClientInfo(name, version string) Option {
	return func(o *clientOptions) {
		o.clientName = name
		o.clientVer = version
	}
}

// WithProtocolVersion sets the protocol version to declare.
func WithProtocolVersion(version string) Option {
	return func(o *clientOptions) {
		o.protocolVer = version
	}
}

// New creates a new driver client with the given transport.
func New(transport Transport, opts ...Option) *Client {
	options := clientOptions{
		timeout:     30 * time.Second,
		clientName:  "slunk-driver",
		clientVer:   "1.0.0",
		protocolVer: protocol.Version,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		transport: transport,
		opts:      options,
	}
}

// Initialize performs the handshake with the server. It must complete
// before any tools call; the result carries the server's declared identity
// and capabilities.
func (c *Client) Initialize(ctx context.Context) (*ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": c.opts.protocolVer,
		"clientInfo": map[string]any{
			"name":    c.opts.clientName,
			"version": c.opts.clientVer,
		},
		"capabilities": map[string]any{},
	}

	resp, err := c.call(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("initialize: invalid result type")
	}

	info := &ServerInfo{}

	if pv, ok := result["protocolVersion"].(string); ok {
		info.ProtocolVersion = pv
	}

	if si, ok := result["serverInfo"].(map[string]any); ok {
		if name, ok := si["name"].(string); ok {
			info.Name = name
		}
		if ver, ok := si["version"].(string); ok {
			info.Version = ver
		}
	}

	if caps, ok := result["capabilities"].(map[string]any); ok {
		if _, ok := caps["tools"]; ok {
			info.Capabilities.Tools = true
		}
	}

	c.mu.Lock()
	c.serverInfo = info
	c.mu.Unlock()

	return info, nil
}

// Initialized sends the initialized notification, completing the handshake.
func (c *Client) Initialized(ctx context.Context) error {
	// Notifications carry no ID and get no response; Send is still used so
	// the write shares the transport's serialization.
	note := &protocol.Request{
		JSONRPC: "2.0",
		Method:  protocol.MethodInitialized,
	}

	if ns, ok := c.transport.(interface {
		SendNotification(ctx context.Context, req *protocol.Request) error
	}); ok {
		return ns.SendNotification(ctx, note)
	}
	return nil
}

// ListTools returns the tools the server exposes, in the server's order.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	resp, err := c.call(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("list tools: invalid result type")
	}

	toolsRaw, ok := result["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("list tools: invalid tools type")
	}

	tools := make([]Tool, 0, len(toolsRaw))
	for _, tr := range toolsRaw {
		tm, ok := tr.(map[string]any)
		if !ok {
			continue
		}

		tool := Tool{}
		if name, ok := tm["name"].(string); ok {
			tool.Name = name
		}
		if desc, ok := tm["description"].(string); ok {
			tool.Description = desc
		}
		if schema, ok := tm["inputSchema"]; ok {
			tool.InputSchema = schema
		}
		tools = append(tools, tool)
	}

	return tools, nil
}

// CallTool calls a tool on the server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*ToolResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	resp, err := c.call(ctx, protocol.MethodToolsCall, params)
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("call tool %q: invalid result type", name)
	}

	toolResult := &ToolResult{}

	if isErr, ok := result["isError"].(bool); ok {
		toolResult.IsError = isErr
	}

	if content, ok := result["content"].([]any); ok {
		for _, cr := range content {
			cm, ok := cr.(map[string]any)
			if !ok {
				continue
			}

			item := ContentItem{}
			if t, ok := cm["type"].(string); ok {
				item.Type = t
			}
			if text, ok := cm["text"].(string); ok {
				item.Text = text
			}
			if data, ok := cm["data"].(string); ok {
				item.Data = data
			}
			toolResult.Content = append(toolResult.Content, item)
		}
	}

	return toolResult, nil
}

// Ping sends a liveness probe to the server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, protocol.MethodPing, nil)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerInfo returns the cached server info from initialization, or nil
// before Initialize has completed.
func (c *Client) ServerInfo() *ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.transport.Close()
}

// call makes a JSON-RPC call to the server.
func (c *Client) call(ctx context.Context, method string, params any) (*protocol.Response, error) {
	id := c.requestID.Add(1)

	var paramsRaw json.RawMessage
	if params != nil {
		var err error
		paramsRaw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("marshal request ID: %w", err)
	}
	req := &protocol.Request{
		JSONRPC: "2.0",
		ID:      idRaw,
		Method:  method,
		Params:  paramsRaw,
	}

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp, nil
}
