package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/apexload/internal/metrics"
	"github.com/torosent/apexload/internal/runner"
	"github.com/torosent/apexload/internal/threshold"
)

// Supported report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the end-of-run document written by every format.
type Report struct {
	SessionID  string             `json:"session_id" yaml:"session_id"`
	Target     string             `json:"target" yaml:"target"`
	Method     string             `json:"method" yaml:"method"`
	Status     runner.Status      `json:"status" yaml:"status"`
	Stats      metrics.Stats      `json:"stats" yaml:"stats"`
	Thresholds []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// Write renders r in the requested format.
func Write(w io.Writer, format string, r Report) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		PrintReport(w, r)
		return nil
	case FormatJSON:
		return PrintJSONReport(w, r)
	case FormatYAML:
		return PrintYAMLReport(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	stats := r.Stats
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if r.SessionID != "" {
		fmt.Fprintf(w, "Session:           %s\n", r.SessionID)
	}
	if r.Target != "" {
		fmt.Fprintf(w, "Target:            %s %s\n", r.Method, r.Target)
	}
	fmt.Fprintf(w, "Status:            %s\n", r.Status)
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.TotalRequests)
	fmt.Fprintf(w, "Successful:        %d\n", stats.SuccessCount)
	fmt.Fprintf(w, "Failed:            %d (%.2f%%)\n", stats.ErrorCount, stats.ErrorRate*100)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.Throughput)
	fmt.Fprintf(w, "Bytes Received:    %d\n", stats.BytesTransferred)

	l := stats.Latency
	fmt.Fprintln(w, "\nLatency (successful requests, ms):")
	fmt.Fprintf(w, "  Min:             %.2f\n", l.Min)
	fmt.Fprintf(w, "  Max:             %.2f\n", l.Max)
	fmt.Fprintf(w, "  Mean:            %.2f\n", l.Mean)
	fmt.Fprintf(w, "  P50:             %.2f\n", l.P50)
	fmt.Fprintf(w, "  P75:             %.2f\n", l.P75)
	fmt.Fprintf(w, "  P90:             %.2f\n", l.P90)
	fmt.Fprintf(w, "  P95:             %.2f\n", l.P95)
	fmt.Fprintf(w, "  P99:             %.2f\n", l.P99)
	fmt.Fprintf(w, "  P99.9:           %.2f\n", l.P999)

	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range metrics.FlattenStatusBuckets(stats.StatusCodes) {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		kinds := make([]string, 0, len(stats.Errors))
		for kind := range stats.Errors {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool {
			if stats.Errors[kinds[i]] == stats.Errors[kinds[j]] {
				return kinds[i] < kinds[j]
			}
			return stats.Errors[kinds[i]] > stats.Errors[kinds[j]]
		})
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", kind, stats.Errors[kind])
		}
	}

	if len(stats.Timeline) > 0 {
		fmt.Fprintln(w, "\nTimeline:")
		fmt.Fprintf(w, "  %-12s %10s %10s %10s %8s %8s\n", "time", "req/s", "p50 ms", "p95 ms", "workers", "errors")
		for _, p := range stats.Timeline {
			fmt.Fprintf(w, "  %-12s %10.1f %10.1f %10.1f %8d %7.1f%%\n",
				p.Timestamp.Format("15:04:05.000"), p.Throughput, p.LatencyP50, p.LatencyP95, p.ActiveWorkers, p.ErrorRate*100)
		}
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, res := range r.Thresholds {
			fmt.Fprintf(w, "  %s\n", res.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
