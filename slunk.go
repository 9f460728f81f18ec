// Package slunk provides a framework for building slunk tool servers: line
// delimited JSON-RPC 2.0 over stdio, with an initialize handshake and a
// tools/list + tools/call surface.
//
//   - Typed handlers with automatic JSON Schema generation
//   - Composable middleware chains
//   - Pluggable transports (stdio, WebSocket)
//   - Production-ready defaults
//
// Basic usage:
//
//	srv := slunk.NewServer(slunk.ServerInfo{
//	    Name:    "slunk",
//	    Version: "1.0.0",
//	})
//
//	type SearchInput struct {
//	    Query string `json:"query" jsonschema:"required"`
//	}
//
//	srv.Tool("search_messages").
//	    Description("Search indexed messages").
//	    Handler(func(ctx context.Context, input SearchInput) ([]string, error) {
//	        return []string{"result1", "result2"}, nil
//	    })
//
//	slunk.ServeStdio(ctx, srv)
package slunk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/slunk/slunk-mcp/middleware"
	"github.com/slunk/slunk-mcp/protocol"
	"github.com/slunk/slunk-mcp/server"
	"github.com/slunk/slunk-mcp/transport"
)

// Re-export core types for convenience

// ServerInfo contains server metadata exposed to clients.
type ServerInfo = server.Info

// Capabilities declares what features the server supports.
type Capabilities = server.Capabilities

// Server is the tool server instance.
type Server = server.Server

// Option configures a Server.
type Option = server.Option

// Progress types for long-running tool calls
type ProgressToken = server.ProgressToken
type Progress = server.Progress
type ProgressReporter = server.ProgressReporter

// ProgressFromContext returns the progress reporter from context.
// Use this in tool handlers to report progress for long-running operations.
var ProgressFromContext = server.ProgressFromContext

// Middleware types
type Middleware = middleware.Middleware
type MiddlewareHandlerFunc = middleware.HandlerFunc
type Logger = middleware.Logger
type LogField = middleware.Field
type NopLogger = middleware.NopLogger
type RateLimitOption = middleware.RateLimitOption

// RateLimit re-exports for convenience.
var (
	RateLimit            = middleware.RateLimit
	RateLimitByMethod    = middleware.RateLimitByMethod
	RateLimitByClient    = middleware.RateLimitByClient
	WithRateLimitKeyFunc = middleware.WithRateLimitKeyFunc
	WithRateLimitLogger  = middleware.WithRateLimitLogger
)

// SizeLimit re-exports for convenience.
type SizeLimitOption = middleware.SizeLimitOption

var (
	SizeLimit           = middleware.SizeLimit
	WithSizeLimitLogger = middleware.WithSizeLimitLogger
)

// Size limit presets.
const (
	KB = middleware.KB
	MB = middleware.MB
)

// ServeOption configures how the server is run.
type ServeOption func(*serveOptions)

type serveOptions struct {
	middleware []Middleware
	logger     Logger
	lenient    bool
}

// WithMiddleware adds middleware to the request handling chain.
func WithMiddleware(m ...Middleware) ServeOption {
	return func(o *serveOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger sets the logger for the default middleware stack.
func WithLogger(l Logger) ServeOption {
	return func(o *serveOptions) {
		o.logger = l
	}
}

// WithLenientHandshake disables the initialize gate, so tool calls are
// accepted from clients that never initialize. The strict gate is the
// default.
func WithLenientHandshake() ServeOption {
	return func(o *serveOptions) {
		o.lenient = true
	}
}

// NewServer creates a new tool server with the given info and options.
func NewServer(info ServerInfo, opts ...Option) *Server {
	return server.New(info, opts...)
}

// ServeStdio runs the server using stdio transport.
// This blocks until the context is canceled or stdin reaches EOF.
func ServeStdio(ctx context.Context, srv *Server, opts ...ServeOption) error {
	t := transport.NewStdio()
	handler := NewHandler(srv, opts...)
	return t.Serve(ctx, handler)
}

// WebSocketOption configures the WebSocket transport.
type WebSocketOption = transport.WebSocketOption

// ServeWebSocket runs the server using WebSocket transport.
// This blocks until the context is canceled or an error occurs.
func ServeWebSocket(ctx context.Context, srv *Server, addr string, wsOpts []WebSocketOption, opts ...ServeOption) error {
	t := transport.NewWebSocket(addr, wsOpts...)
	handler := NewHandler(srv, opts...)
	return t.Serve(ctx, handler)
}

// WithWebSocketReadTimeout sets the read timeout for WebSocket messages.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return transport.WithWebSocketReadTimeout(d)
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return transport.WithWebSocketWriteTimeout(d)
}

// Middleware re-exports

// Chain composes multiple middleware into a single middleware.
func Chain(middlewares ...Middleware) Middleware {
	return middleware.Chain(middlewares...)
}

// Recover returns middleware that catches panics and converts them to internal errors.
func Recover() Middleware {
	return middleware.Recover()
}

// RecoverWithHandler returns middleware that catches panics and calls the provided handler.
func RecoverWithHandler(handler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)) Middleware {
	return middleware.RecoverWithHandler(handler)
}

// Timeout returns middleware that enforces a request deadline.
func Timeout(d time.Duration) Middleware {
	return middleware.Timeout(d)
}

// RequestID returns middleware that injects a unique request ID into the context.
func RequestID() Middleware {
	return middleware.RequestID()
}

// RequestIDFromContext returns the request ID from the context, or empty string if not set.
func RequestIDFromContext(ctx context.Context) string {
	return middleware.RequestIDFromContext(ctx)
}

// Logging returns middleware that logs request details.
func Logging(logger Logger) Middleware {
	return middleware.Logging(logger)
}

// DefaultMiddleware returns the recommended production middleware stack.
func DefaultMiddleware(logger Logger) []Middleware {
	return middleware.DefaultStack(logger)
}

// DefaultMiddlewareWithTimeout returns the default stack with a timeout middleware.
func DefaultMiddlewareWithTimeout(logger Logger, timeout time.Duration) []Middleware {
	return middleware.DefaultStackWithTimeout(logger, timeout)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return middleware.F(key, value)
}

// requestHandler adapts Server to transport.Handler. It owns the session
// state for one connection: the initialize gate applies before dispatch.
type requestHandler struct {
	srv        *Server
	session    *server.Session
	handleFunc middleware.HandlerFunc
}

// NewHandler builds the transport handler for srv: session gate, then
// middleware chain, then method dispatch. Transports and in-memory test
// drivers share it.
func NewHandler(srv *Server, opts ...ServeOption) transport.Handler {
	options := &serveOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var sessionOpts []server.SessionOption
	if options.lenient {
		sessionOpts = append(sessionOpts, server.Lenient())
	}

	h := &requestHandler{
		srv:     srv,
		session: server.NewSession(sessionOpts...),
	}

	baseHandler := middleware.HandlerFunc(h.handle)

	if len(options.middleware) > 0 {
		h.handleFunc = middleware.Chain(options.middleware...)(baseHandler)
	} else {
		h.handleFunc = baseHandler
	}

	return h
}

func (h *requestHandler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return h.handleFunc(ctx, req)
}

func (h *requestHandler) handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if err := h.session.Gate(req.Method); err != nil {
		return nil, err
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return h.handleInitialize(req)
	case protocol.MethodInitialized:
		h.session.MarkInitialized()
		return nil, nil
	case protocol.MethodToolsList:
		return h.handleToolsList(req)
	case protocol.MethodToolsCall:
		return h.handleToolsCall(ctx, req)
	case protocol.MethodPing:
		return h.handlePing(req)
	default:
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

func (h *requestHandler) handleInitialize(req *protocol.Request) (*protocol.Response, error) {
	manifest := h.srv.Manifest()

	capabilities := make(map[string]any)
	if manifest.Capabilities.Tools {
		capabilities["tools"] = map[string]any{}
	}

	result := map[string]any{
		"protocolVersion": manifest.ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    manifest.Name,
			"version": manifest.Version,
		},
		"capabilities": capabilities,
	}

	// Repeated initialize is harmless; the session stays initialized.
	h.session.MarkInitialized()

	return protocol.NewResponse(req.ID, result), nil
}

func (h *requestHandler) handleToolsList(req *protocol.Request) (*protocol.Response, error) {
	tools := h.srv.Tools()

	toolList := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		toolList = append(toolList, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		})
	}

	result := map[string]any{
		"tools": toolList,
	}

	return protocol.NewResponse(req.ID, result), nil
}

func (h *requestHandler) handleToolsCall(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	tool, ok := h.srv.GetTool(params.Name)
	if !ok {
		return nil, protocol.NewToolNotFound("tool not found: " + params.Name)
	}

	progressToken := server.ExtractProgressToken(req.Params)
	if progressToken != "" {
		if sender := transport.NotificationSenderFromContext(ctx); sender != nil {
			reporter := server.NewProgressReporter(progressToken, &notificationAdapter{sender})
			ctx = server.ContextWithProgress(ctx, reporter)
		}
	}

	result, err := tool.Execute(ctx, params.Arguments)
	if err != nil {
		var perr *protocol.Error
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, protocol.NewInternalError(err.Error())
	}

	response := map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": textContent(result),
			},
		},
	}

	return protocol.NewResponse(req.ID, response), nil
}

func (h *requestHandler) handlePing(req *protocol.Request) (*protocol.Response, error) {
	return protocol.NewResponse(req.ID, map[string]any{}), nil
}

// textContent renders a handler result as the text of a content item.
// Strings pass through; everything else is serialized as JSON.
func textContent(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// notificationAdapter adapts transport.NotificationSender to server.NotificationSender.
type notificationAdapter struct {
	sender transport.NotificationSender
}

func (a *notificationAdapter) SendNotification(method string, params any) error {
	return a.sender.SendNotification(method, params)
}
