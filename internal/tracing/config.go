package tracing

import "os"

// Config controls OpenTelemetry export for outgoing requests.
type Config struct {
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" json:"protocol,omitempty" yaml:"protocol,omitempty"` // grpc or http
	ServiceName string  `mapstructure:"service_name" json:"service_name,omitempty" yaml:"service_name,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure" json:"insecure,omitempty" yaml:"insecure,omitempty"`
	Propagate   *bool   `mapstructure:"propagate" json:"propagate,omitempty" yaml:"propagate,omitempty"`
}

// Enabled reports whether an exporter endpoint is configured, either
// directly or through OTEL_EXPORTER_OTLP_ENDPOINT.
func (c Config) Enabled() bool {
	return c.Endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to true when tracing is enabled.
func (c Config) ShouldPropagate() bool {
	if c.Propagate != nil {
		return *c.Propagate
	}
	return c.Enabled()
}
