package runner

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/apexload/internal/httpclient"
	"github.com/torosent/apexload/internal/metrics"
)

// Runner owns the load test lifecycle. A Runner can execute many tests one
// after another but never two at once.
type Runner struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	propagate bool
	newClient func(timeout time.Duration) *http.Client
	collector *metrics.Collector
	onSpawn   func(index int, at time.Time)

	mu         sync.Mutex
	observers  []Observer
	status     Status
	sessionID  string
	generation uint64
	workers    []*worker
	stopCh     chan struct{}
	total      int
	completed  int
	active     int

	// Events are queued under mu in the order state changes happen and
	// delivered by one goroutine at a time with no lock held.
	pending    []func(Observer)
	enqueued   uint64
	delivered  uint64
	delivering bool
	drained    *sync.Cond
}

func New(opts ...Option) *Runner {
	r := &Runner{
		logger:    zap.NewNop(),
		newClient: httpclient.NewWorkerClient,
		status:    StatusIdle,
	}
	r.drained = sync.NewCond(&r.mu)
	for _, opt := range opts {
		opt(r)
	}
	if r.collector == nil {
		r.collector = metrics.NewCollector()
	}
	return r
}

// Subscribe registers an observer for all subsequent events.
func (r *Runner) Subscribe(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SessionID identifies the most recently started test.
func (r *Runner) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Stats returns the current aggregate snapshot, including mid-test.
func (r *Runner) Stats() metrics.Stats {
	return r.collector.Aggregate()
}

// Start runs a load test and blocks until every worker has exited. It
// returns ErrAlreadyRunning, without changing any state, while another test
// is in flight. Cancelling ctx stops the test and also aborts requests that
// are still on the wire. Observers have received the terminal events by the
// time Start returns, so it must not be called from inside a callback.
func (r *Runner) Start(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.Normalize()

	r.mu.Lock()
	if r.status == StatusRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.generation++
	gen := r.generation
	r.collector.Reset()
	r.status = StatusRunning
	r.sessionID = ulid.Make().String()
	r.workers = nil
	r.stopCh = make(chan struct{})
	r.total = cfg.TotalRequests
	r.completed = 0
	r.active = 0
	stopCh := r.stopCh
	sessionID := r.sessionID
	r.enqueueLocked(statusEvent(StatusRunning))
	r.mu.Unlock()
	r.deliver()

	logger := r.logger.With(zap.String("session", sessionID))

	builder, err := httpclient.NewRequestBuilder(httpclient.RequestSpec{
		Method:   cfg.Method,
		URL:      cfg.URL,
		Headers:  cfg.Headers,
		Body:     cfg.Body,
		BodyFile: cfg.BodyFile,
	})
	if err != nil {
		err = fmt.Errorf("invalid request configuration: %w", err)
		logger.Error("load test failed to start", zap.Error(err))
		r.waitDelivered(r.fail(gen, err))
		return err
	}

	logger.Info("load test started",
		zap.String("target", builder.Origin()+builder.Path()),
		zap.String("method", builder.Method()),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("total_requests", cfg.TotalRequests),
		zap.Duration("ramp_up", cfg.RampUp),
		zap.Duration("timeout", cfg.Timeout),
		zap.Duration("think_time", cfg.ThinkTime),
	)

	stopWatch := context.AfterFunc(ctx, func() { r.stopGeneration(gen) })
	defer stopWatch()

	slots := NewSlotAllocator(cfg.TotalRequests)
	report := func(res metrics.RequestResult) { r.report(gen, res) }
	delay := cfg.rampDelay()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		r.mu.Lock()
		if r.generation != gen || r.status != StatusRunning {
			r.mu.Unlock()
			break
		}
		w := newWorker(i, r.newClient(cfg.Timeout), builder, slots, cfg.ThinkTime, report)
		w.tracer = r.tracer
		w.propagate = r.propagate
		r.workers = append(r.workers, w)
		r.active++
		r.collector.SetActiveWorkers(r.active)
		r.mu.Unlock()

		if r.onSpawn != nil {
			r.onSpawn(i, time.Now())
		}
		logger.Debug("worker spawned", zap.Int("worker", i))

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
			r.workerExited(gen)
		}()

		if delay > 0 && i < cfg.Concurrency-1 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-stopCh:
			case <-ctx.Done():
			}
			timer.Stop()
		}
	}
	wg.Wait()

	r.mu.Lock()
	if r.generation != gen || r.status != StatusRunning {
		// Stopped or failed; wait for those events to reach observers.
		target := r.enqueued
		r.mu.Unlock()
		r.waitDelivered(target)
		return nil
	}
	r.status = StatusCompleted
	r.workers = nil
	stats := r.collector.Aggregate()
	target := r.enqueueLocked(statusEvent(StatusCompleted), completeEvent(stats))
	r.mu.Unlock()

	logger.Info("load test completed",
		zap.Int64("total", stats.TotalRequests),
		zap.Int64("errors", stats.ErrorCount),
		zap.Duration("duration", stats.Duration),
	)
	r.waitDelivered(target)
	return nil
}

// Stop ends the running test, if any, and returns without waiting for
// in-flight requests. Their results are still recorded if they arrive.
// Stop may be called from inside an Observer callback; the resulting status
// and complete events are delivered once that callback returns.
func (r *Runner) Stop() {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()
	r.stopGeneration(gen)
}

func (r *Runner) stopGeneration(gen uint64) {
	r.mu.Lock()
	if r.generation != gen || r.status != StatusRunning {
		r.mu.Unlock()
		return
	}
	r.status = StatusCompleted
	workers := r.workers
	r.workers = nil
	close(r.stopCh)
	sessionID := r.sessionID
	stats := r.collector.Aggregate()
	r.enqueueLocked(statusEvent(StatusCompleted), completeEvent(stats))
	r.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}
	r.logger.Info("load test stopped",
		zap.String("session", sessionID),
		zap.Int64("total", stats.TotalRequests),
		zap.Int("workers", len(workers)),
	)
	r.deliver()
}

// fail moves the test to the error state. It returns the sequence number of
// the last queued event.
func (r *Runner) fail(gen uint64, err error) uint64 {
	r.mu.Lock()
	if r.generation != gen {
		target := r.enqueued
		r.mu.Unlock()
		return target
	}
	r.status = StatusError
	workers := r.workers
	r.workers = nil
	target := r.enqueueLocked(statusEvent(StatusError), errorEvent(err))
	r.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}
	r.deliver()
	return target
}

// report records a result and, while the test is running, queues result and
// progress. Results from a previous test are dropped.
func (r *Runner) report(gen uint64, res metrics.RequestResult) {
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	r.collector.Record(res)
	r.completed++
	if r.status != StatusRunning || len(r.observers) == 0 {
		r.mu.Unlock()
		return
	}
	completed, total := r.completed, r.total
	snapshot := r.collector.Aggregate()
	r.enqueueLocked(
		func(o Observer) { o.OnResult(res, snapshot) },
		func(o Observer) { o.OnProgress(completed, total) },
	)
	r.mu.Unlock()
	r.deliver()
}

func (r *Runner) workerExited(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	r.active--
	r.collector.SetActiveWorkers(r.active)
}

func statusEvent(s Status) func(Observer) {
	return func(o Observer) { o.OnStatus(s) }
}

func completeEvent(stats metrics.Stats) func(Observer) {
	return func(o Observer) { o.OnComplete(stats) }
}

func errorEvent(err error) func(Observer) {
	return func(o Observer) { o.OnError(err) }
}

// enqueueLocked appends events and returns the sequence number of the last
// one. mu must be held.
func (r *Runner) enqueueLocked(events ...func(Observer)) uint64 {
	r.pending = append(r.pending, events...)
	r.enqueued += uint64(len(events))
	return r.enqueued
}

// deliver hands queued events to observers unless another goroutine, or a
// callback further up this goroutine's stack, is already doing so. In that
// case the active deliverer picks them up before it returns.
func (r *Runner) deliver() {
	r.mu.Lock()
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for len(r.pending) > 0 {
		ev := r.pending[0]
		r.pending[0] = nil
		r.pending = r.pending[1:]
		observers := r.observers
		r.mu.Unlock()

		for _, o := range observers {
			ev(o)
		}

		r.mu.Lock()
		r.delivered++
		r.drained.Broadcast()
	}
	r.pending = nil
	r.delivering = false
	r.mu.Unlock()
}

// waitDelivered blocks until every event up to target has been delivered.
// It must not be called from inside a callback.
func (r *Runner) waitDelivered(target uint64) {
	r.deliver()
	r.mu.Lock()
	for r.delivered < target {
		r.drained.Wait()
	}
	r.mu.Unlock()
}
