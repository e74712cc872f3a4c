package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/apexload/internal/tracing"
)

func memoryTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetPropagator()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp.Tracer("apexload-test")
}

func attr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInit(t *testing.T) {
	off := false
	tests := []struct {
		name          string
		cfg           tracing.Config
		wantErr       bool
		wantEnabled   bool
		wantPropagate bool
	}{
		{name: "disabled", cfg: tracing.Config{}},
		{
			name:          "grpc",
			cfg:           tracing.Config{Endpoint: "localhost:4317", Protocol: "grpc", ServiceName: "checkout", SampleRate: 1, Insecure: true},
			wantEnabled:   true,
			wantPropagate: true,
		},
		{
			name:          "http with ratio sampler",
			cfg:           tracing.Config{Endpoint: "localhost:4318", Protocol: "HTTP", SampleRate: 0.3, Insecure: true},
			wantEnabled:   true,
			wantPropagate: true,
		},
		{
			name:        "propagation off",
			cfg:         tracing.Config{Endpoint: "localhost:4317", Insecure: true, Propagate: &off},
			wantEnabled: true,
		},
		{name: "unknown protocol", cfg: tracing.Config{Endpoint: "localhost:4317", Protocol: "thrift"}, wantErr: true},
		{name: "negative rate", cfg: tracing.Config{Endpoint: "localhost:4317", SampleRate: -0.5}, wantErr: true},
		{name: "rate above one", cfg: tracing.Config{Endpoint: "localhost:4317", SampleRate: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

			p, err := tracing.Init(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Init() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

			if p.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", p.Enabled(), tt.wantEnabled)
			}
			if p.ShouldPropagate() != tt.wantPropagate {
				t.Errorf("ShouldPropagate() = %v, want %v", p.ShouldPropagate(), tt.wantPropagate)
			}
		})
	}
}

func TestDisabledProviderHandsOutNoopSpans(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), tracing.Config{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled provider produced a recording span")
	}
}

func TestNilProvider(t *testing.T) {
	var p *tracing.Provider
	if p.Enabled() || p.ShouldPropagate() {
		t.Error("nil provider reports tracing as active")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
}

func TestStartRequestSpan(t *testing.T) {
	exporter, tracer := memoryTracer(t)

	tests := []struct {
		method, path, wantName string
	}{
		{"GET", "/orders?page=2", "GET /orders?page=2"},
		{"DELETE", "", "DELETE"},
	}
	for _, tt := range tests {
		exporter.Reset()
		_, span := tracing.StartRequestSpan(context.Background(), tracer, tt.method, tt.path)
		span.End()

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("%s: got %d spans, want 1", tt.wantName, len(spans))
		}
		got := spans[0]
		if got.Name != tt.wantName {
			t.Errorf("span name = %q, want %q", got.Name, tt.wantName)
		}
		if got.SpanKind != trace.SpanKindClient {
			t.Errorf("%s: span kind = %v, want client", tt.wantName, got.SpanKind)
		}
		if v, ok := attr(got, "http.request.method"); !ok || v.AsString() != tt.method {
			t.Errorf("%s: http.request.method = %v", tt.wantName, v.AsString())
		}
		if v, ok := attr(got, "url.path"); !ok || v.AsString() != tt.path {
			t.Errorf("%s: url.path = %q, want %q", tt.wantName, v.AsString(), tt.path)
		}
	}
}

func TestEndSpan(t *testing.T) {
	exporter, tracer := memoryTracer(t)

	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.Ok},
		{context.DeadlineExceeded, codes.Error},
		{errors.New("HTTP 503"), codes.Error},
	}
	for _, tt := range tests {
		exporter.Reset()
		_, span := tracer.Start(context.Background(), "request")
		tracing.EndSpan(span, tt.err, attribute.Int("http.response.status_code", 503))

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("got %d spans, want 1", len(spans))
		}
		if spans[0].Status.Code != tt.want {
			t.Errorf("EndSpan(%v) status = %v, want %v", tt.err, spans[0].Status.Code, tt.want)
		}
		if v, ok := attr(spans[0], "http.response.status_code"); !ok || v.AsInt64() != 503 {
			t.Errorf("EndSpan(%v) dropped extra attributes", tt.err)
		}
		if tt.err != nil && len(spans[0].Events) == 0 {
			t.Errorf("EndSpan(%v) did not record the error event", tt.err)
		}
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := memoryTracer(t)

	headers := http.Header{}
	tracing.InjectHTTPHeaders(context.Background(), headers)
	if got := headers.Get("Traceparent"); got != "" {
		t.Errorf("traceparent without a span = %q, want empty", got)
	}

	ctx, span := tracer.Start(context.Background(), "inject")
	defer span.End()
	tracing.InjectHTTPHeaders(ctx, headers)

	// 00-<32 hex trace id>-<16 hex span id>-<2 hex flags>
	got := headers.Get("Traceparent")
	if len(got) != 55 {
		t.Fatalf("traceparent = %q, want 55 characters", got)
	}
	if want := span.SpanContext().TraceID().String(); got[3:35] != want {
		t.Errorf("traceparent trace id = %q, want %q", got[3:35], want)
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg tracing.Config
	if cfg.Enabled() || cfg.ShouldPropagate() {
		t.Fatalf("zero config should be disabled: %+v", cfg)
	}

	cfg.Endpoint = "collector:4317"
	if !cfg.Enabled() || !cfg.ShouldPropagate() {
		t.Fatal("endpoint should enable tracing and propagation")
	}

	off := false
	cfg.Propagate = &off
	if cfg.ShouldPropagate() {
		t.Fatal("explicit propagate=false ignored")
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	if !(tracing.Config{}).Enabled() {
		t.Fatal("environment endpoint should enable tracing")
	}
}
