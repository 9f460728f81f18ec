package server

import (
	"sync"

	"github.com/slunk/slunk-mcp/protocol"
)

// Session tracks the handshake state of one protocol connection: a
// two-state machine, Uninitialized until the first initialize request and
// Initialized for the rest of the process lifetime. There is no shutdown
// transition; the session ends with the process.
//
// By default the session is strict: any method other than initialize and
// ping received while uninitialized is rejected with a not-initialized
// error. Lenient mode restores the permissive behavior where the handshake
// is advisory.
type Session struct {
	mu          sync.Mutex
	initialized bool
	lenient     bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// Lenient disables handshake enforcement: methods are accepted before
// initialize. Matches clients that skip the handshake entirely.
func Lenient() SessionOption {
	return func(s *Session) {
		s.lenient = true
	}
}

// NewSession creates a session in the Uninitialized state.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialized reports whether the handshake has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// MarkInitialized transitions the session to Initialized. The transition
// is idempotent: repeated initialize requests leave the state unchanged.
func (s *Session) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// Gate checks whether the given method is acceptable in the session's
// current state. It returns a not-initialized error for gated methods
// received before the handshake, nil otherwise.
func (s *Session) Gate(method string) *protocol.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized || s.lenient {
		return nil
	}

	switch method {
	case protocol.MethodInitialize, protocol.MethodInitialized, protocol.MethodPing:
		// ping stays open pre-handshake so drivers can poll for liveness
		// while the server starts up.
		return nil
	}

	return protocol.NewNotInitialized("initialize must be called before " + method)
}
