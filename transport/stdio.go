package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/slunk/slunk-mcp/protocol"
)

// Stdio implements the slunk protocol over stdin/stdout. Processing is
// strictly serial: one line is read, the request fully handled, and the
// response line written before the next line is read. Diagnostic text goes
// to the error stream, never to the protocol stream.
type Stdio struct {
	in     io.Reader
	out    *protocol.Encoder
	errOut io.Writer
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdin sets a custom input stream.
func WithStdin(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithStdout sets a custom output stream.
func WithStdout(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = protocol.NewEncoder(w)
	}
}

// WithStderr sets a custom diagnostic stream.
func WithStderr(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.errOut = w
	}
}

// NewStdio creates a new stdio transport bound to the process streams.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:     os.Stdin,
		out:    protocol.NewEncoder(os.Stdout),
		errOut: os.Stderr,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the transport address.
func (s *Stdio) Addr() string {
	return "stdio"
}

// Serve processes requests from the input stream until EOF or context
// cancellation. Each request is handled to completion before the next is
// read; the protocol layer is never pipelined.
func (s *Stdio) Serve(ctx context.Context, handler Handler) error {
	scanner := bufio.NewScanner(s.in)

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil // EOF
			}
			s.handleLine(ctx, handler, line)
		}
	}
}

// SendNotification sends a JSON-RPC notification on the output stream.
func (s *Stdio) SendNotification(method string, params any) error {
	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	return s.out.Encode(notif)
}

func (s *Stdio) handleLine(ctx context.Context, handler Handler, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	var req protocol.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.logf("dropping malformed request line: %v", err)
		s.writeResponse(protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error())))
		return
	}

	ctx = ContextWithNotificationSender(ctx, s)

	resp, err := handler.HandleRequest(ctx, &req)

	if req.IsNotification() {
		return
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
		s.writeResponse(resp)
	}
}

func (s *Stdio) writeResponse(resp *protocol.Response) {
	if err := s.out.Encode(resp); err != nil {
		s.logf("failed to write response: %v", err)
	}
}

func (s *Stdio) logf(format string, args ...any) {
	if s.errOut == nil {
		return
	}
	fmt.Fprintf(s.errOut, format+"\n", args...)
}
