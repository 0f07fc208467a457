package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type staticProgress struct{ current, total int64 }

func (s staticProgress) Current() int64 { return s.current }
func (s staticProgress) Total() int64   { return s.total }

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		total   int64
		percent string
	}{
		{name: "empty", current: 0, total: 100, percent: "0.0%"},
		{name: "half", current: 50, total: 100, percent: "50.0%"},
		{name: "overflow clamps", current: 150, total: 100, percent: "100.0%"},
		{name: "zero total", current: 0, total: 0, percent: "0.0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := ProgressBar(tt.current, tt.total, 10)
			if !strings.HasSuffix(bar, tt.percent) {
				t.Errorf("ProgressBar(%d, %d) = %q, want suffix %q", tt.current, tt.total, bar, tt.percent)
			}
		})
	}
}

func TestManagerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf)
	ok := m.Register("a.bin")
	bad := m.Register("b.bin")
	if got := m.outputs[ok].Status; got != StatusPending {
		t.Fatalf("new job status = %q, want pending", got)
	}

	m.AttachProgress(ok, staticProgress{current: 5, total: 10})
	if got := m.outputs[ok].Status; got != StatusActive {
		t.Fatalf("status after AttachProgress = %q, want active", got)
	}
	lines := m.render(10)
	if len(lines) != 3 {
		t.Fatalf("render returned %d lines, want 3 (active job, its bar, pending job)", len(lines))
	}
	if !strings.Contains(lines[1], "50.0%") {
		t.Errorf("progress line %q does not show 50%%", lines[1])
	}

	m.Complete(ok, "")
	m.ReportError(bad, errors.New("chunk 2: boom"))
	success, failures := m.Counts()
	if success != 1 || failures != 1 {
		t.Fatalf("Counts() = %d, %d, want 1, 1", success, failures)
	}

	m.StartDisplay()
	m.StopDisplay()
	m.StopDisplay()
	out := buf.String()
	for _, want := range []string{"Completed a.bin", "Completed 1 of 2", "Failed 1 of 2", "chunk 2: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestManagerWarningKeepsProgress(t *testing.T) {
	m := NewManager(&bytes.Buffer{})
	id := m.Register("c.bin")
	m.AttachProgress(id, staticProgress{current: 1, total: 4})
	m.SetStatus(id, StatusWarning)
	m.SetMessage(id, "Downloading c.bin over a single connection")
	lines := m.render(10)
	if len(lines) != 2 {
		t.Fatalf("render returned %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], StyleSymbols["warning"]) || !strings.Contains(lines[1], "25.0%") {
		t.Errorf("unexpected warning lines: %q", lines)
	}
}
