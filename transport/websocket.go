package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slunk/slunk-mcp/protocol"
)

// WebSocket implements the slunk protocol over WebSocket connections,
// one JSON object per message. Shutdown drains in-flight requests through
// a ShutdownManager before closing clients.
type WebSocket struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server
	shutdown *ShutdownManager

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient represents a single WebSocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithWebSocketReadTimeout sets the read timeout for WebSocket messages.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.readTimeout = d
	}
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.writeTimeout = d
	}
}

// WithWebSocketShutdownTimeout sets the maximum time to wait for in-flight
// requests during shutdown.
func WithWebSocketShutdownTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.shutdownTimeout = d
	}
}

// WithWebSocketCheckOrigin sets the origin check function for upgrades.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(ws *WebSocket) {
		ws.upgrader.CheckOrigin = fn
	}
}

// NewWebSocket creates a new WebSocket transport.
func NewWebSocket(addr string, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		readTimeout:     60 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 30 * time.Second,
		clients:         make(map[*wsClient]struct{}),
	}

	for _, opt := range opts {
		opt(ws)
	}

	ws.shutdown = NewShutdownManager(ShutdownConfig{Timeout: ws.shutdownTimeout})

	return ws
}

// Addr returns the transport address.
func (ws *WebSocket) Addr() string {
	return ws.addr
}

// Serve starts the WebSocket server.
func (ws *WebSocket) Serve(ctx context.Context, handler Handler) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws.handleConnection(ctx, w, r, handler)
	})

	ws.server = &http.Server{
		Addr:         ws.addr,
		Handler:      mux,
		ReadTimeout:  ws.readTimeout,
		WriteTimeout: ws.writeTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ws.shutdownTimeout)
		defer cancel()
		_ = ws.shutdown.Shutdown(shutdownCtx)
		ws.closeAllClients()
		return ws.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (ws *WebSocket) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, handler Handler) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{conn: conn}

	ws.mu.Lock()
	ws.clients[client] = struct{}{}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, client)
		ws.mu.Unlock()
		_ = conn.Close()
	}()

	sender := &wsNotificationSender{client: client}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ws.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Close errors are normal (client disconnected).
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(message, &req); err != nil {
			resp := protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error()))
			_ = client.writeJSON(resp)
			continue
		}

		if !ws.shutdown.TrackRequest() {
			// Draining: reject rather than start work that will be cut off.
			resp := protocol.NewErrorResponse(req.ID, protocol.NewInternalError("server shutting down"))
			_ = client.writeJSON(resp)
			continue
		}

		reqCtx := ContextWithNotificationSender(ctx, sender)
		resp, err := handler.HandleRequest(reqCtx, &req)
		ws.shutdown.CompleteRequest()

		if req.IsNotification() {
			continue
		}

		if err != nil {
			var perr *protocol.Error
			if errors.As(err, &perr) {
				resp = protocol.NewErrorResponse(req.ID, perr)
			} else {
				resp = protocol.NewErrorResponse(req.ID, protocol.NewInternalError(err.Error()))
			}
		}

		if resp != nil {
			_ = client.writeJSON(resp)
		}
	}
}

func (ws *WebSocket) closeAllClients() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for client := range ws.clients {
		client.close()
	}
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// wsNotificationSender sends notifications to a WebSocket client.
type wsNotificationSender struct {
	client *wsClient
}

func (s *wsNotificationSender) SendNotification(method string, params any) error {
	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	return s.client.writeJSON(notif)
}
