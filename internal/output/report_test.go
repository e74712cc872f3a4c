package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/runner"
	"github.com/torosent/apexload/internal/threshold"
)

func sampleReport() Report {
	ts := time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC)
	return Report{
		SessionID: "01HQZX3W5K8M2N4P6R8T0V2X4Z",
		Target:    "http://localhost:8080/health",
		Method:    "GET",
		Status:    runner.StatusCompleted,
		Stats: metrics.Stats{
			TotalRequests:    100,
			SuccessCount:     95,
			ErrorCount:       5,
			ErrorRate:        0.05,
			Throughput:       50,
			BytesTransferred: 2048,
			Duration:         2 * time.Second,
			DurationMs:       2000,
			Latency:          metrics.LatencyStats{Min: 1, Max: 90, Mean: 20, P50: 18, P75: 25, P90: 40, P95: 55, P99: 80, P999: 90},
			Timeline: []metrics.TimelinePoint{
				{Timestamp: ts, Throughput: 50, LatencyP50: 18, LatencyP95: 50, ActiveWorkers: 4, ErrorRate: 0.04},
			},
			StatusCodes: map[int]int{200: 95, 503: 3, 0: 2},
			Errors:      map[string]int{"HTTP error response": 3, "Connection refused": 2},
		},
		Thresholds: []threshold.Result{
			{Raw: "latency:p95 < 100", Actual: 55, Pass: true, Message: "✓ latency:p95 < 100: 55.00 < 100.00"},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{
		"Total Requests:    100",
		"Successful:        95",
		"Failed:            5 (5.00%)",
		"Duration:          2s",
		"P99.9:           90.00",
		"200 OK: 95",
		"503 Service Unavailable: 3",
		"no response: 2",
		"HTTP error response: 3",
		"Timeline:",
		"12:00:01.000",
		"✓ latency:p95 < 100",
		"Session:           01HQZX3W5K8M2N4P6R8T0V2X4Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Error kinds are ordered by count.
	if strings.Index(out, "HTTP error response") > strings.Index(out, "Connection refused") {
		t.Errorf("error breakdown not sorted by count")
	}
}

func TestPrintReportEmptyStats(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, Report{Status: runner.StatusError})
	out := buf.String()
	if !strings.Contains(out, "Status:            error") {
		t.Errorf("expected error status in report:\n%s", out)
	}
	if strings.Contains(out, "Timeline:") || strings.Contains(out, "Status Codes:") {
		t.Errorf("empty sections should be omitted:\n%s", out)
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleReport()); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["status"] != "completed" {
		t.Errorf("status = %v, want completed", decoded["status"])
	}
	stats := decoded["stats"].(map[string]any)
	if stats["total_requests"] != float64(100) {
		t.Errorf("total_requests = %v", stats["total_requests"])
	}
	latency := stats["latency"].(map[string]any)
	if latency["p99_ms"] != float64(80) {
		t.Errorf("latency.p99_ms = %v", latency["p99_ms"])
	}
	if _, ok := stats["timeline"].([]any); !ok {
		t.Errorf("timeline missing from JSON")
	}
	thresholds := decoded["thresholds"].([]any)
	if thresholds[0].(map[string]any)["pass"] != true {
		t.Errorf("threshold result not encoded: %v", thresholds)
	}
}

func TestPrintYAMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintYAMLReport(&buf, sampleReport()); err != nil {
		t.Fatalf("PrintYAMLReport() error = %v", err)
	}

	var decoded struct {
		SessionID string `yaml:"session_id"`
		Status    string `yaml:"status"`
		Stats     struct {
			TotalRequests int64       `yaml:"total_requests"`
			StatusCodes   map[int]int `yaml:"status_codes"`
		} `yaml:"stats"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if decoded.Status != "completed" || decoded.SessionID == "" {
		t.Errorf("unexpected header fields: %+v", decoded)
	}
	if decoded.Stats.TotalRequests != 100 || decoded.Stats.StatusCodes[503] != 3 {
		t.Errorf("unexpected stats: %+v", decoded.Stats)
	}
}

func TestWriteFormats(t *testing.T) {
	for _, format := range []string{"", "text", "JSON", "yaml"} {
		var buf bytes.Buffer
		if err := Write(&buf, format, sampleReport()); err != nil {
			t.Errorf("Write(%q) error = %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Write(%q) produced no output", format)
		}
	}
	if err := Write(&bytes.Buffer{}, "html", sampleReport()); err == nil {
		t.Error("Write(html) error = nil, want error")
	}
}
