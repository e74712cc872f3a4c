package runner

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/apexload/internal/httpclient"
	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// worker is one virtual user. It owns a client holding a single keep-alive
// connection to the target and loops until the slots run out or it is
// stopped.
type worker struct {
	id        int
	client    *http.Client
	builder   *httpclient.RequestBuilder
	slots     *SlotAllocator
	thinkTime time.Duration
	report    func(metrics.RequestResult)
	tracer    trace.Tracer
	propagate bool

	stopped  atomic.Bool
	stopOnce sync.Once
	wake     chan struct{}
}

func newWorker(id int, client *http.Client, builder *httpclient.RequestBuilder, slots *SlotAllocator, thinkTime time.Duration, report func(metrics.RequestResult)) *worker {
	return &worker{
		id:        id,
		client:    client,
		builder:   builder,
		slots:     slots,
		thinkTime: thinkTime,
		report:    report,
		wake:      make(chan struct{}),
	}
}

// run blocks until the worker exits. ctx only cancels in-flight requests;
// the stop flag is what ends the loop.
func (w *worker) run(ctx context.Context) {
	defer w.client.CloseIdleConnections()

	for !w.stopped.Load() {
		seq, ok := w.slots.Claim()
		if !ok {
			return
		}

		w.report(w.execute(ctx, seq))

		if w.thinkTime > 0 && !w.stopped.Load() {
			if !w.pause(ctx) {
				return
			}
		}
	}
}

// pause sleeps for the think time. It returns false if the worker was
// stopped or ctx ended while sleeping.
func (w *worker) pause(ctx context.Context) bool {
	timer := time.NewTimer(w.thinkTime)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.wake:
		return false
	case <-ctx.Done():
		return false
	}
}

// stop is idempotent. Requests already on the wire are allowed to finish.
func (w *worker) stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		close(w.wake)
		w.client.CloseIdleConnections()
	})
}

func (w *worker) execute(ctx context.Context, seq int64) metrics.RequestResult {
	var span trace.Span
	if w.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, w.tracer, w.builder.Method(), w.builder.Path())
	}

	start := time.Now()
	status, bytes, err := w.do(ctx)
	end := time.Now()

	result := metrics.NewRequestResult(seq, start, end, status)
	result.Bytes = bytes
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.ErrorKind = metrics.ClassifyError(err)
	}

	if span != nil {
		attrs := []attribute.KeyValue{attribute.Int64("apexload.sequence", seq)}
		if status > 0 {
			attrs = append(attrs, semconv.HTTPResponseStatusCode(status))
		}
		tracing.EndSpan(span, err, attrs...)
	}
	return result
}

// do sends one request and consumes the body. Transport and body-read
// failures report status 0 and no bytes.
func (w *worker) do(ctx context.Context) (int, int64, error) {
	req, err := w.builder.Build(ctx)
	if err != nil {
		return 0, 0, err
	}
	if w.tracer != nil && w.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if metrics.IsSuccessStatus(resp.StatusCode) {
		n, err := io.Copy(io.Discard, resp.Body)
		if err != nil {
			return 0, 0, err
		}
		return resp.StatusCode, n, nil
	}

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	if err != nil {
		return 0, 0, err
	}
	rest, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, 0, err
	}
	return resp.StatusCode, int64(len(snippet)) + rest, &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}
