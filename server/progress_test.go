package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/slunk/slunk-mcp/protocol"
)

type recordingNotifier struct {
	methods []string
	params  []any
}

func (r *recordingNotifier) SendNotification(method string, params any) error {
	r.methods = append(r.methods, method)
	r.params = append(r.params, params)
	return nil
}

func TestProgressReporter_Report(t *testing.T) {
	notifier := &recordingNotifier{}
	reporter := NewProgressReporter("tok-1", notifier)

	total := 100.0
	if err := reporter.Report(10, &total); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reporter.ReportWithMessage(20, &total, "indexing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.methods) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notifier.methods))
	}
	for _, m := range notifier.methods {
		if m != protocol.MethodProgress {
			t.Errorf("method = %q, want %q", m, protocol.MethodProgress)
		}
	}

	params := notifier.params[1].(map[string]any)
	if params["progressToken"] != "tok-1" {
		t.Errorf("progressToken = %v, want tok-1", params["progressToken"])
	}
	if params["message"] != "indexing" {
		t.Errorf("message = %v, want indexing", params["message"])
	}
}

func TestProgressReporter_MonotonicProgress(t *testing.T) {
	notifier := &recordingNotifier{}
	reporter := NewProgressReporter("tok-2", notifier)

	_ = reporter.Report(50, nil)
	_ = reporter.Report(40, nil) // regression gets bumped forward

	second := notifier.params[1].(map[string]any)
	if second["progress"].(float64) <= 50 {
		t.Errorf("progress = %v, want > 50", second["progress"])
	}
}

func TestProgressReporter_NoToken(t *testing.T) {
	notifier := &recordingNotifier{}
	reporter := NewProgressReporter("", notifier)

	if err := reporter.Report(1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.methods) != 0 {
		t.Error("reporter without token should not notify")
	}
}

func TestProgressFromContext(t *testing.T) {
	// Without a reporter, a no-op is returned.
	noop := ProgressFromContext(context.Background())
	if noop.Token() != "" {
		t.Errorf("noop token = %q, want empty", noop.Token())
	}
	if err := noop.Report(1, nil); err != nil {
		t.Errorf("noop report failed: %v", err)
	}

	reporter := NewProgressReporter("tok-3", &recordingNotifier{})
	ctx := ContextWithProgress(context.Background(), reporter)
	if got := ProgressFromContext(ctx); got.Token() != "tok-3" {
		t.Errorf("token = %q, want tok-3", got.Token())
	}
}

func TestExtractProgressToken(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   ProgressToken
	}{
		{
			name:   "token present",
			params: `{"name":"search_messages","_meta":{"progressToken":"p-1"}}`,
			want:   "p-1",
		},
		{
			name:   "no meta",
			params: `{"name":"search_messages"}`,
			want:   "",
		},
		{
			name:   "nil params",
			params: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.params != "" {
				raw = json.RawMessage(tt.params)
			}
			if got := ExtractProgressToken(raw); got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}
