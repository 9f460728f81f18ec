package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/slunk/slunk-mcp/protocol"
)

// StdioTransport owns a server subprocess and talks to it over stdin and
// stdout, one JSON object per line. The server's stdout may interleave
// diagnostic lines with responses; the decoder skips them with a bounded
// per-message attempt budget. When the budget runs out the calls in flight
// fail with ErrTimeout; the transport keeps reading and later calls may
// still succeed. Only end of stream or a read error retires the transport.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.ReadCloser

	enc *protocol.Encoder
	dec *protocol.Decoder

	maxAttempts int

	mu      sync.Mutex
	pending map[int64]chan *protocol.Response
	closed  bool

	done    chan struct{}
	readErr error

	readWG sync.WaitGroup
}

// StdioTransportOption configures a StdioTransport before the subprocess
// starts.
type StdioTransportOption func(*stdioConfig)

type stdioConfig struct {
	env         []string
	maxAttempts int
}

// WithEnv appends environment variables, in KEY=VALUE form, to the
// subprocess environment. The subprocess inherits the parent environment
// either way.
func WithEnv(env ...string) StdioTransportOption {
	return func(c *stdioConfig) {
		c.env = append(c.env, env...)
	}
}

// WithMaxDecodeAttempts sets how many stdout lines the transport reads per
// expected response before giving up. Zero or less means
// protocol.DefaultDecodeAttempts.
func WithMaxDecodeAttempts(n int) StdioTransportOption {
	return func(c *stdioConfig) {
		c.maxAttempts = n
	}
}

// NewStdioTransport spawns the server subprocess and wires its pipes. The
// returned transport owns the process; Close terminates it and reaps it on
// every path.
func NewStdioTransport(command string, args []string, opts ...StdioTransportOption) (*StdioTransport, error) {
	cfg := stdioConfig{maxAttempts: protocol.DefaultDecodeAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, args...)
	if len(cfg.env) > 0 {
		cmd.Env = append(cmd.Environ(), cfg.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	t := &StdioTransport{
		cmd:         cmd,
		stdin:       stdin,
		stderr:      stderr,
		enc:         protocol.NewEncoder(stdin),
		dec:         protocol.NewDecoder(stdout),
		maxAttempts: cfg.maxAttempts,
		pending:     make(map[int64]chan *protocol.Response),
		done:        make(chan struct{}),
	}

	t.readWG.Add(1)
	go t.readResponses()

	return t, nil
}

// Send sends a request and waits for the matching response. The wait is
// bounded by the context and by the decode attempt budget; either bound
// expiring surfaces as ErrTimeout.
func (t *StdioTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport closed")
	}

	var id int64
	if err := json.Unmarshal(req.ID, &id); err != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("invalid request ID: %w", err)
	}

	respCh := make(chan *protocol.Response, 1)
	t.pending[id] = respCh
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	if err := t.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	case resp, ok := <-respCh:
		if !ok {
			// The reader exhausted its decode budget waiting for this
			// response. The call failed; the transport did not.
			return nil, ErrTimeout
		}
		return resp, nil
	case <-t.done:
		if t.readErr != nil && !errors.Is(t.readErr, io.EOF) {
			return nil, t.readErr
		}
		return nil, ErrTimeout
	}
}

// SendNotification writes a request with no ID and does not wait for a
// response.
func (t *StdioTransport) SendNotification(ctx context.Context, req *protocol.Request) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("transport closed")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.enc.Encode(req); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Close closes stdin to signal EOF, then terminates and reaps the
// subprocess. It is safe to call more than once.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()

	t.readWG.Wait()

	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}

	err := t.cmd.Wait()

	// The process was killed; its exit status is not an error here.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// readResponses reads stdout lines until the stream ends, dispatching each
// well-formed response to the caller waiting on its ID. An exhausted
// per-message attempt budget fails only the calls pending at that moment;
// the loop keeps reading so the next call gets a fresh budget. Responses
// with unknown IDs are stale replies to already timed-out calls and are
// discarded.
func (t *StdioTransport) readResponses() {
	defer t.readWG.Done()
	defer close(t.done)

	for {
		resp, err := t.dec.DecodeNext(t.maxAttempts)
		if err != nil {
			if errors.Is(err, protocol.ErrNoResponse) {
				t.failPending()
				continue
			}
			t.readErr = err
			return
		}

		var id int64
		if err := json.Unmarshal(resp.ID, &id); err != nil {
			continue
		}

		t.mu.Lock()
		if ch, ok := t.pending[id]; ok {
			// Each channel gets at most one send, so the buffered send
			// cannot block even if the server repeats an ID.
			delete(t.pending, id)
			ch <- resp
		}
		t.mu.Unlock()
	}
}

// failPending closes every in-flight response channel, surfacing
// ErrTimeout to each waiting Send.
func (t *StdioTransport) failPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		close(ch)
	}
}

// Stderr returns the subprocess diagnostic stream.
func (t *StdioTransport) Stderr() io.Reader {
	return t.stderr
}
