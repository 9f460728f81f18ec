package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultDecodeAttempts is the number of lines a Decoder reads before
// giving up on finding a well-formed protocol message.
const DefaultDecodeAttempts = 10

// ErrNoResponse is returned by Decoder.DecodeNext when the attempt budget
// is exhausted before a well-formed message is found. Callers treat it as
// a timeout for the call in flight, not a fatal stream error: the stream
// is still positioned for the next decode.
var ErrNoResponse = errors.New("slunk: no protocol message found")

// Encoder writes protocol messages as line-delimited JSON: one complete
// JSON object followed by a newline per message. It is safe for concurrent
// use; messages are never interleaved within a line.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals v and writes it as a single newline-terminated line.
// It fails only if v cannot be serialized or the write itself fails.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if _, err := e.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Decoder reads line-delimited protocol messages from a stream that may
// also carry non-protocol diagnostic text. Lines that do not begin with a
// JSON object opening token, or that fail to parse, are skipped. This is a
// deliberate best-effort resynchronization contract: the server's output
// stream is allowed to interleave log lines with responses, and the decoder
// must never fail on them.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// DecodeNext reads up to maxAttempts lines and returns the first line that
// parses as a Response. Skipped lines are consumed and discarded. It
// returns ErrNoResponse when the budget is exhausted, io.EOF when the
// stream ends cleanly, and the underlying read error if the stream itself
// fails.
//
// A maxAttempts of zero or less uses DefaultDecodeAttempts.
func (d *Decoder) DecodeNext(maxAttempts int) (*Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultDecodeAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read response line: %w", err)
			}
			return nil, io.EOF
		}

		line := strings.TrimSpace(d.scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}
		return &resp, nil
	}

	return nil, ErrNoResponse
}

// DecodeNextRequest is the server-side counterpart of DecodeNext: it reads
// lines until one parses as a Request, with the same skip and end-of-stream
// semantics.
func (d *Decoder) DecodeNextRequest(maxAttempts int) (*Request, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultDecodeAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read request line: %w", err)
			}
			return nil, io.EOF
		}

		line := strings.TrimSpace(d.scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			continue
		}
		return &req, nil
	}

	return nil, ErrNoResponse
}
