package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/torosent/apexload/internal/metrics"
)

func TestProgressReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(time.Hour, &buf)

	for i := 1; i <= 50; i++ {
		p.OnResult(metrics.RequestResult{}, metrics.Stats{TotalRequests: int64(i), SuccessCount: int64(i)})
		p.OnProgress(i, 50)
	}

	if n := strings.Count(buf.String(), "\r"); n != 1 {
		t.Fatalf("expected a single redraw within the interval, got %d: %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), "Requests: 1/50 (2%)") {
		t.Errorf("first redraw should show the first progress event: %q", buf.String())
	}
}

func TestProgressReporterFinalLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(time.Hour, &buf)
	p.OnProgress(1, 10)

	p.OnComplete(metrics.Stats{TotalRequests: 10, SuccessCount: 9, ErrorCount: 1, Throughput: 12.5})

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("final line not terminated: %q", out)
	}
	last := out[strings.LastIndex(out, "\r"):]
	for _, want := range []string{"Requests: 10/10 (100%)", "Successes: 9", "Failures: 1", "RPS: 12.5"} {
		if !strings.Contains(last, want) {
			t.Errorf("final line missing %q: %q", want, last)
		}
	}
}

func TestProgressReporterError(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(0, &buf)
	p.OnProgress(1, 2)
	p.OnError(errors.New("invalid request configuration"))

	if !strings.Contains(buf.String(), "\nError: invalid request configuration\n") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
