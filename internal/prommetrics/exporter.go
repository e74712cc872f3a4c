// Package prommetrics exposes live load test metrics in the Prometheus
// text format while a test runs.
package prommetrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/runner"
)

const namespace = "apexload"

// Exporter is a runner.Observer that mirrors events into Prometheus
// collectors registered on its own registry.
type Exporter struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   prometheus.Histogram
	bytes     prometheus.Counter
	progress  prometheus.Gauge
	running   prometheus.Gauge
	tests     *prometheus.CounterVec
}

func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed requests by outcome.",
		}, []string{"outcome"}),
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Completed requests by HTTP status code; 0 means no response.",
		}, []string{"code"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Failed requests by error kind.",
		}, []string{"kind"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of successful requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_total",
			Help:      "Response body bytes read.",
		}),
		progress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_ratio",
			Help:      "Completed requests divided by the configured total.",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_running",
			Help:      "1 while a load test is running.",
		}),
		tests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Finished load tests by final status.",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) OnStatus(s runner.Status) {
	if s == runner.StatusRunning {
		e.running.Set(1)
		e.progress.Set(0)
		return
	}
	e.running.Set(0)
	if s.Terminal() {
		e.tests.WithLabelValues(s.String()).Inc()
	}
}

func (e *Exporter) OnProgress(completed, total int) {
	if total > 0 {
		e.progress.Set(float64(completed) / float64(total))
	}
}

func (e *Exporter) OnResult(res metrics.RequestResult, _ metrics.Stats) {
	e.responses.WithLabelValues(strconv.Itoa(res.StatusCode)).Inc()
	e.bytes.Add(float64(res.Bytes))
	if res.Success {
		e.requests.WithLabelValues("success").Inc()
		e.latency.Observe(res.Latency.Seconds())
		return
	}
	e.requests.WithLabelValues("failure").Inc()
	kind := res.ErrorKind
	if kind == "" {
		kind = "Unknown error"
	}
	e.errors.WithLabelValues(kind).Inc()
}

func (e *Exporter) OnComplete(metrics.Stats) {}

func (e *Exporter) OnError(error) {}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{DisableCompression: true})
}

// Serve listens on addr and serves /metrics until ctx is done. It returns
// the bound address, which differs from addr when addr uses port 0.
func (e *Exporter) Serve(ctx context.Context, addr string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	bound := ln.Addr().String()
	logger.Info("serving prometheus metrics", zap.String("addr", bound))
	return bound, nil
}
