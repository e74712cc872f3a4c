package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/runner"
)

// ProgressReporter is a runner.Observer that redraws a single status line.
// Result events arrive for every request, so redraws are throttled to
// one per interval.
type ProgressReporter struct {
	mu        sync.Mutex
	writer    io.Writer
	throttle  rate.Sometimes
	completed int
	total     int
	last      metrics.Stats
	drawn     bool
}

// NewProgressReporter creates a progress reporter that redraws at most once
// per interval.
func NewProgressReporter(interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		writer:   writer,
		throttle: rate.Sometimes{First: 1, Interval: interval},
	}
}

func (p *ProgressReporter) OnStatus(runner.Status) {}

func (p *ProgressReporter) OnResult(_ metrics.RequestResult, snapshot metrics.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = snapshot
}

func (p *ProgressReporter) OnProgress(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed, p.total = completed, total
	p.throttle.Do(p.drawLocked)
}

// OnComplete draws the final counts and ends the line.
func (p *ProgressReporter) OnComplete(stats metrics.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = stats
	p.completed = int(stats.TotalRequests)
	p.drawLocked()
	fmt.Fprintln(p.writer)
	p.drawn = false
}

func (p *ProgressReporter) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.writer)
		p.drawn = false
	}
	fmt.Fprintf(p.writer, "Error: %v\n", err)
}

func (p *ProgressReporter) drawLocked() {
	s := p.last
	line := fmt.Sprintf("\rRequests: %d", p.completed)
	if p.total > 0 {
		line += fmt.Sprintf("/%d (%.0f%%)", p.total, float64(p.completed)/float64(p.total)*100)
	}
	line += fmt.Sprintf(" | Successes: %d | Failures: %d | RPS: %.1f | P95: %.1fms",
		s.SuccessCount, s.ErrorCount, s.Throughput, s.Latency.P95)
	fmt.Fprint(p.writer, line)
	p.drawn = true
}
