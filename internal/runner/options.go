package runner

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/apexload/internal/metrics"
)

// Limits applied by Config.Normalize.
const (
	MinConcurrency   = 1
	MaxConcurrency   = 1000
	MinTotalRequests = 1
	MaxTotalRequests = 100_000
	MaxRampUp        = 600 * time.Second
	MinTimeout       = 100 * time.Millisecond
	MaxTimeout       = 60 * time.Second
	MaxThinkTime     = 10 * time.Second
)

// Config describes one load test. Start normalizes it before use.
type Config struct {
	URL           string
	Method        string
	Headers       map[string]string
	Body          string
	BodyFile      string
	Concurrency   int           // number of workers
	TotalRequests int           // slots shared by all workers
	RampUp        time.Duration // window over which worker starts are staggered
	Timeout       time.Duration // per request, covering headers and body
	ThinkTime     time.Duration // pause between a worker's consecutive requests
}

// Normalize clamps every numeric field into its supported range. Concurrency
// may still exceed TotalRequests; surplus workers exit without a slot.
func (c *Config) Normalize() {
	c.Concurrency = clampInt(c.Concurrency, MinConcurrency, MaxConcurrency)
	c.TotalRequests = clampInt(c.TotalRequests, MinTotalRequests, MaxTotalRequests)
	c.RampUp = clampDuration(c.RampUp, 0, MaxRampUp)
	c.Timeout = clampDuration(c.Timeout, MinTimeout, MaxTimeout)
	c.ThinkTime = clampDuration(c.ThinkTime, 0, MaxThinkTime)
}

// rampDelay is the pause between consecutive worker spawns.
func (c Config) rampDelay() time.Duration {
	if c.RampUp <= 0 || c.Concurrency <= 0 {
		return 0
	}
	return c.RampUp / time.Duration(c.Concurrency)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer wraps every request in a client span. When propagate is true
// the W3C trace context is injected into the outgoing headers.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(r *Runner) {
		r.tracer = tracer
		r.propagate = propagate
	}
}

// WithClientFactory replaces the per-worker HTTP client constructor.
func WithClientFactory(factory func(timeout time.Duration) *http.Client) Option {
	return func(r *Runner) {
		if factory != nil {
			r.newClient = factory
		}
	}
}

// WithCollector shares an existing collector instead of allocating one.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Runner) {
		if c != nil {
			r.collector = c
		}
	}
}

// withSpawnHook is called with the worker index each time a worker starts.
func withSpawnHook(hook func(index int, at time.Time)) Option {
	return func(r *Runner) {
		r.onSpawn = hook
	}
}
