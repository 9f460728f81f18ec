package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncoder_Encode(t *testing.T) {
	t.Run("writes one object per line", func(t *testing.T) {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)

		req := NewRequest(json.RawMessage(`1`), MethodToolsList, nil)
		if err := enc.Encode(req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := enc.Encode(NewResponse(json.RawMessage(`1`), "ok")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
		}
		for _, line := range lines {
			var v map[string]any
			if err := json.Unmarshal([]byte(line), &v); err != nil {
				t.Errorf("line is not a complete JSON object: %q", line)
			}
		}
	})

	t.Run("fails on unserializable value", func(t *testing.T) {
		enc := NewEncoder(&bytes.Buffer{})
		if err := enc.Encode(map[string]any{"fn": func() {}}); err == nil {
			t.Error("expected error for unserializable value")
		}
	})
}

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{
			name: "numeric id with params",
			req:  NewRequest(json.RawMessage(`7`), MethodToolsCall, json.RawMessage(`{"name":"ping_slunk","arguments":{}}`)),
		},
		{
			name: "string id without params",
			req:  NewRequest(json.RawMessage(`"req-a"`), MethodInitialize, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewEncoder(&buf).Encode(tt.req); err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			got, err := NewDecoder(&buf).DecodeNextRequest(1)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if got.Method != tt.req.Method {
				t.Errorf("Method = %q, want %q", got.Method, tt.req.Method)
			}
			if !bytes.Equal(got.ID, tt.req.ID) {
				t.Errorf("ID = %s, want %s", got.ID, tt.req.ID)
			}
			if !bytes.Equal(got.Params, tt.req.Params) {
				t.Errorf("Params = %s, want %s", got.Params, tt.req.Params)
			}
		})
	}
}

func TestDecoder_DecodeNext(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		maxAttempts int
		wantID      string
		wantErr     error
	}{
		{
			name:        "plain response",
			input:       `{"jsonrpc":"2.0","id":1,"result":"ok"}` + "\n",
			maxAttempts: 1,
			wantID:      `1`,
		},
		{
			name: "skips diagnostic lines before response",
			input: "[DEBUG] starting engine\n" +
				"loading vector index...\n" +
				"not json at all {{{\n" +
				`{"jsonrpc":"2.0","id":2,"result":{"ok":true}}` + "\n",
			maxAttempts: 10,
			wantID:      `2`,
		},
		{
			name: "skips malformed json object line",
			input: `{"jsonrpc":"2.0","id":` + "\n" +
				`{"jsonrpc":"2.0","id":3,"result":null}` + "\n",
			maxAttempts: 10,
			wantID:      `3`,
		},
		{
			name:        "budget exhausted",
			input:       "noise\nnoise\nnoise\nnoise\n",
			maxAttempts: 3,
			wantErr:     ErrNoResponse,
		},
		{
			name:        "stream closed without response",
			input:       "just one log line\n",
			maxAttempts: 10,
			wantErr:     io.EOF,
		},
		{
			name:        "empty stream",
			input:       "",
			maxAttempts: 5,
			wantErr:     io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(strings.NewReader(tt.input))
			resp, err := dec.DecodeNext(tt.maxAttempts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(resp.ID) != tt.wantID {
				t.Errorf("ID = %s, want %s", resp.ID, tt.wantID)
			}
		})
	}

	t.Run("zero attempts uses default budget", func(t *testing.T) {
		input := strings.Repeat("noise\n", DefaultDecodeAttempts-1) +
			`{"jsonrpc":"2.0","id":9,"result":"late"}` + "\n"
		resp, err := NewDecoder(strings.NewReader(input)).DecodeNext(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.ID) != "9" {
			t.Errorf("ID = %s, want 9", resp.ID)
		}
	})

	t.Run("stream survives an exhausted budget", func(t *testing.T) {
		input := "noise\nnoise\nnoise\n" +
			`{"jsonrpc":"2.0","id":4,"result":"late"}` + "\n"
		dec := NewDecoder(strings.NewReader(input))

		if _, err := dec.DecodeNext(3); !errors.Is(err, ErrNoResponse) {
			t.Fatalf("error = %v, want ErrNoResponse", err)
		}
		resp, err := dec.DecodeNext(3)
		if err != nil {
			t.Fatalf("decode after exhausted budget: %v", err)
		}
		if string(resp.ID) != "4" {
			t.Errorf("ID = %s, want 4", resp.ID)
		}
	})

	t.Run("responses are read in order", func(t *testing.T) {
		input := `{"jsonrpc":"2.0","id":1,"result":"a"}` + "\n" +
			"interleaved log output\n" +
			`{"jsonrpc":"2.0","id":2,"result":"b"}` + "\n"
		dec := NewDecoder(strings.NewReader(input))

		first, err := dec.DecodeNext(5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := dec.DecodeNext(5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(first.ID) != "1" || string(second.ID) != "2" {
			t.Errorf("IDs = %s, %s, want 1, 2", first.ID, second.ID)
		}
	})
}
