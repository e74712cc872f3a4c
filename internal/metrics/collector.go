package metrics

import (
	"sync"
	"time"
)

const (
	windowInterval = time.Second
	// minElapsed guards throughput against division by a near-zero duration.
	minElapsed = 5 * time.Millisecond
)

// Collector is the single serialization point for request results. It keeps
// a global latency histogram over successful requests and a timeline of
// ~1s windows. All methods are safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	now  func() time.Time
	hist *Histogram

	results      []RequestResult
	successes    int64
	failures     int64
	bytes        int64
	statusCodes  map[int]int
	errorsByType map[string]int

	timeline      []TimelinePoint
	window        []RequestResult
	windowStart   time.Time
	start         time.Time
	activeWorkers int
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:          time.Now,
		hist:         NewHistogram(globalSigFigs),
		statusCodes:  make(map[int]int),
		errorsByType: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	c.windowStart = c.start
	return c
}

// SetActiveWorkers updates the gauge reported in timeline points.
func (c *Collector) SetActiveWorkers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeWorkers = n
}

// Record ingests one result and flushes the current window once at least a
// second has passed since the previous flush.
func (c *Collector) Record(r RequestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, r)
	c.window = append(c.window, r)
	c.bytes += r.Bytes
	c.statusCodes[r.StatusCode]++

	if r.Success {
		c.successes++
		c.hist.RecordLatency(r.Latency)
	} else {
		c.failures++
		kind := r.ErrorKind
		if kind == "" {
			kind = "Unknown error"
		}
		c.errorsByType[kind]++
	}

	now := c.now()
	if now.Sub(c.windowStart) >= windowInterval {
		c.snapshotWindow(now)
	}
}

// snapshotWindow must be called with c.mu held.
func (c *Collector) snapshotWindow(now time.Time) {
	elapsed := now.Sub(c.windowStart).Seconds()
	windowHist := NewHistogram(windowSigFigs)
	errors := 0
	for _, r := range c.window {
		if r.Success {
			windowHist.RecordLatency(r.Latency)
		} else {
			errors++
		}
	}

	count := len(c.window)
	point := TimelinePoint{
		Timestamp:     now,
		LatencyP50:    windowHist.Percentile(50),
		LatencyP95:    windowHist.Percentile(95),
		ActiveWorkers: c.activeWorkers,
	}
	if elapsed > 0 {
		point.Throughput = float64(count) / elapsed
	}
	if count > 0 {
		point.ErrorRate = float64(errors) / float64(count)
	}
	c.timeline = append(c.timeline, point)

	c.window = c.window[:0]
	c.windowStart = now
}

// Aggregate returns a snapshot of the current state. It does not mutate
// the collector.
func (c *Collector) Aggregate() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.now().Sub(c.start)
	total := int64(len(c.results))
	stats := Stats{
		TotalRequests:    total,
		SuccessCount:     c.successes,
		ErrorCount:       c.failures,
		BytesTransferred: c.bytes,
		Duration:         elapsed,
		DurationMs:       float64(elapsed) / float64(time.Millisecond),
		Latency: LatencyStats{
			Min:  c.hist.Min(),
			Max:  c.hist.Max(),
			Mean: c.hist.Mean(),
			P50:  c.hist.Percentile(50),
			P75:  c.hist.Percentile(75),
			P90:  c.hist.Percentile(90),
			P95:  c.hist.Percentile(95),
			P99:  c.hist.Percentile(99),
			P999: c.hist.Percentile(99.9),
		},
		Timeline: append([]TimelinePoint(nil), c.timeline...),
	}

	if total > 0 {
		stats.ErrorRate = float64(c.failures) / float64(total)
	}
	if elapsed < minElapsed {
		elapsed = minElapsed
	}
	stats.Throughput = float64(total) / elapsed.Seconds()

	if len(c.statusCodes) > 0 {
		stats.StatusCodes = make(map[int]int, len(c.statusCodes))
		for k, v := range c.statusCodes {
			stats.StatusCodes[k] = v
		}
	}
	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = v
		}
	}

	return stats
}

// Timeline returns a copy of the timeline recorded so far.
func (c *Collector) Timeline() []TimelinePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TimelinePoint(nil), c.timeline...)
}

// Results returns a copy of the full result log.
func (c *Collector) Results() []RequestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RequestResult(nil), c.results...)
}

// Reset clears all recorded state. Call only when no test is in flight.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hist.Reset()
	c.results = nil
	c.successes = 0
	c.failures = 0
	c.bytes = 0
	c.statusCodes = make(map[int]int)
	c.errorsByType = make(map[string]int)
	c.timeline = nil
	c.window = nil
	c.activeWorkers = 0
	c.start = c.now()
	c.windowStart = c.start
}
