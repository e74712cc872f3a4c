package metrics

import (
	"time"
)

// RequestResult is the outcome of one request attempt.
type RequestResult struct {
	Sequence   int64         `json:"sequence" yaml:"sequence"`
	Start      time.Time     `json:"start" yaml:"start"`
	End        time.Time     `json:"end" yaml:"end"`
	Latency    time.Duration `json:"-" yaml:"-"`
	LatencyMs  float64       `json:"latency_ms" yaml:"latency_ms"`
	StatusCode int           `json:"status_code" yaml:"status_code"` // 0 when no response was received
	Success    bool          `json:"success" yaml:"success"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Bytes      int64         `json:"bytes" yaml:"bytes"`
}

// NewRequestResult fills in the derived latency fields from start and end.
func NewRequestResult(seq int64, start, end time.Time, status int) RequestResult {
	latency := end.Sub(start)
	return RequestResult{
		Sequence:   seq,
		Start:      start,
		End:        end,
		Latency:    latency,
		LatencyMs:  float64(latency) / float64(time.Millisecond),
		StatusCode: status,
		Success:    IsSuccessStatus(status),
	}
}

// IsSuccessStatus reports whether a status code counts as a successful request.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 400
}

// TimelinePoint summarises one ~1s window of results.
type TimelinePoint struct {
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Throughput    float64   `json:"throughput" yaml:"throughput"`
	LatencyP50    float64   `json:"latency_p50_ms" yaml:"latency_p50_ms"`
	LatencyP95    float64   `json:"latency_p95_ms" yaml:"latency_p95_ms"`
	ActiveWorkers int       `json:"active_workers" yaml:"active_workers"`
	ErrorRate     float64   `json:"error_rate" yaml:"error_rate"`
}

// LatencyStats holds percentiles over all successful requests, in milliseconds.
type LatencyStats struct {
	Min  float64 `json:"min_ms" yaml:"min_ms"`
	Max  float64 `json:"max_ms" yaml:"max_ms"`
	Mean float64 `json:"mean_ms" yaml:"mean_ms"`
	P50  float64 `json:"p50_ms" yaml:"p50_ms"`
	P75  float64 `json:"p75_ms" yaml:"p75_ms"`
	P90  float64 `json:"p90_ms" yaml:"p90_ms"`
	P95  float64 `json:"p95_ms" yaml:"p95_ms"`
	P99  float64 `json:"p99_ms" yaml:"p99_ms"`
	P999 float64 `json:"p999_ms" yaml:"p999_ms"`
}

// Stats is an immutable aggregate snapshot.
type Stats struct {
	TotalRequests    int64           `json:"total_requests" yaml:"total_requests"`
	SuccessCount     int64           `json:"success_count" yaml:"success_count"`
	ErrorCount       int64           `json:"error_count" yaml:"error_count"`
	ErrorRate        float64         `json:"error_rate" yaml:"error_rate"`
	Throughput       float64         `json:"throughput" yaml:"throughput"`
	BytesTransferred int64           `json:"bytes_transferred" yaml:"bytes_transferred"`
	Latency          LatencyStats    `json:"latency" yaml:"latency"`
	Timeline         []TimelinePoint `json:"timeline" yaml:"timeline"`

	Duration    time.Duration  `json:"-" yaml:"-"`
	DurationMs  float64        `json:"duration_ms" yaml:"duration_ms"`
	StatusCodes map[int]int    `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Errors      map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
}
