package server

import (
	"sync"

	"github.com/slunk/slunk-mcp/protocol"
)

// Info contains server metadata exposed to clients during initialize.
type Info struct {
	Name         string
	Version      string
	Capabilities Capabilities
}

// Capabilities declares what features the server supports.
type Capabilities struct {
	Tools bool
}

// Manifest represents the server manifest returned to clients.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ToolInfo represents metadata about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema any
}

// Option configures a Server.
type Option func(*Server)

// Server holds the tool registry. Registration happens at startup; after
// that the registry is read-only and tools/list order is stable for the
// process lifetime.
type Server struct {
	mu sync.RWMutex

	info  Info
	tools map[string]*Tool
	order []string
}

// New creates a new server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:  info,
		tools: make(map[string]*Tool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Manifest returns the server manifest for the initialize handshake.
func (s *Server) Manifest() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Manifest{
		Name:            s.info.Name,
		Version:         s.info.Version,
		ProtocolVersion: protocol.Version,
		Capabilities:    s.info.Capabilities,
	}
}

// Tool starts building a new tool with the given name.
func (s *Server) Tool(name string) *ToolBuilder {
	return &ToolBuilder{
		tool: &Tool{
			name: name,
		},
		server: s,
	}
}

// Tools returns info about all registered tools, in registration order.
// Two consecutive calls within one process return the identical sequence.
func (s *Server) Tools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ToolInfo, 0, len(s.order))
	for _, name := range s.order {
		t := s.tools[name]
		result = append(result, ToolInfo{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
		})
	}
	return result
}

// GetTool retrieves a tool by name.
func (s *Server) GetTool(name string) (*Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// registerTool adds a tool to the registry. Re-registering a name replaces
// the handler but keeps the original list position.
func (s *Server) registerTool(t *Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[t.name]; !exists {
		s.order = append(s.order, t.name)
	}
	s.tools[t.name] = t
}
