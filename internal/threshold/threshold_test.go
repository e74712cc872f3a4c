package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/apexload/internal/metrics"
)

func TestParse(t *testing.T) {
	valid := map[string]Threshold{
		"latency:p95 < 500":    {Metric: "latency", Aggregate: "p95", Operator: "<", Value: 500},
		"errors:rate < 0.01":   {Metric: "errors", Aggregate: "rate", Operator: "<", Value: 0.01},
		"latency:p99 <= 1000":  {Metric: "latency", Aggregate: "p99", Operator: "<=", Value: 1000},
		"requests:rate > 100":  {Metric: "requests", Aggregate: "rate", Operator: ">", Value: 100},
		"latency:avg<200":      {Metric: "latency", Aggregate: "avg", Operator: "<", Value: 200},
		"latency:p999 <= 2000": {Metric: "latency", Aggregate: "p999", Operator: "<=", Value: 2000},
		"requests:count == 50": {Metric: "requests", Aggregate: "count", Operator: "==", Value: 50},
	}
	for input, want := range valid {
		got, err := Parse("  " + input + " ")
		if err != nil {
			t.Errorf("Parse(%q) error = %v", input, err)
			continue
		}
		want.Raw = input
		if got != want {
			t.Errorf("Parse(%q) = %+v, want %+v", input, got, want)
		}
	}

	invalid := []string{
		"",
		"latency:p95 500",
		"invalid_metric:p95 < 500",
		"latency:p85 < 500",
		"errors:p95 < 1",
		"latency:p95 << 500",
		"latency:p95 != 500",
		"latency:p95 < abc",
		"latency:p95 < 1.2.3",
	}
	for _, input := range invalid {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) error = nil, want error", input)
		}
	}
}

func TestParseMultiple(t *testing.T) {
	got, err := ParseMultiple([]string{"latency:p95 < 500", "errors:rate < 0.01", "requests:rate > 100"})
	if err != nil || len(got) != 3 {
		t.Fatalf("ParseMultiple() = %d thresholds, %v; want 3, nil", len(got), err)
	}

	if got, err := ParseMultiple(nil); err != nil || got != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v; want nil, nil", got, err)
	}

	_, err = ParseMultiple([]string{"latency:p95 < 500", "bogus", "latency:p42 < 1"})
	if err == nil {
		t.Fatal("ParseMultiple() error = nil, want error")
	}
	for _, want := range []string{"threshold[1]", "threshold[2]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestEvaluator(t *testing.T) {
	stats := metrics.Stats{
		TotalRequests: 1000,
		SuccessCount:  980,
		ErrorCount:    20,
		ErrorRate:     0.02,
		Throughput:    100,
		Duration:      10 * time.Second,
		Latency: metrics.LatencyStats{
			Min: 10, Max: 500, Mean: 100,
			P50: 80, P75: 150, P90: 200, P95: 300, P99: 400, P999: 480,
		},
	}

	cases := []struct {
		threshold string
		pass      bool
	}{
		{"latency:p99 < 500", true},
		{"latency:p99 < 300", false},
		{"latency:p50 < 100", true},
		{"latency:p90 < 250", true},
		{"latency:avg < 150", true},
		{"latency:max < 600", true},
		{"latency:min > 5", true},
		{"errors:rate < 0.05", true},
		{"errors:rate < 0.01", false},
		{"errors:count < 50", true},
		{"requests:rate > 50", true},
		{"requests:count > 900", true},
		{"requests:count >= 1000", true},
	}

	raw := make([]string, len(cases))
	for i, c := range cases {
		raw[i] = c.threshold
	}
	thresholds, err := ParseMultiple(raw)
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(stats)
	if len(results) != len(cases) {
		t.Fatalf("got %d results, want %d", len(results), len(cases))
	}
	for i, res := range results {
		c := cases[i]
		if res.Raw != c.threshold {
			t.Errorf("result[%d].Raw = %q, want %q", i, res.Raw, c.threshold)
		}
		if res.Pass != c.pass {
			t.Errorf("%q: pass = %v, want %v (actual %.2f)", c.threshold, res.Pass, c.pass, res.Actual)
		}
		mark := "✓"
		if !c.pass {
			mark = "✗"
		}
		if !strings.HasPrefix(res.Message, mark) {
			t.Errorf("%q: message %q does not start with %s", c.threshold, res.Message, mark)
		}
	}

	if got := NewEvaluator(nil).Evaluate(stats); got != nil {
		t.Errorf("Evaluate() with no thresholds = %v, want nil", got)
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{"less than true", 50, "<", 100, true},
		{"less than false", 100, "<", 50, false},
		{"less than equal", 100, "<", 100, false},
		{"less than or equal true", 50, "<=", 100, true},
		{"less than or equal equal", 100, "<=", 100, true},
		{"less than or equal false", 150, "<=", 100, false},
		{"greater than true", 150, ">", 100, true},
		{"greater than false", 50, ">", 100, false},
		{"greater than equal", 100, ">", 100, false},
		{"greater than or equal true", 150, ">=", 100, true},
		{"greater than or equal equal", 100, ">=", 100, true},
		{"greater than or equal false", 50, ">=", 100, false},
		{"equal true", 100, "==", 100, true},
		{"equal false", 100, "==", 101, false},
		{"equal with floating point precision", 100.0000000001, "==", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(tt.actual, tt.operator, tt.expected)
			if got != tt.want {
				t.Errorf("compareValues(%.2f, %s, %.2f) = %v, want %v",
					tt.actual, tt.operator, tt.expected, got, tt.want)
			}
		})
	}
}

func TestExtractors(t *testing.T) {
	stats := metrics.Stats{
		TotalRequests: 1000,
		SuccessCount:  950,
		ErrorCount:    50,
		ErrorRate:     0.05,
		Throughput:    123.45,
		Latency: metrics.LatencyStats{
			Min:  10.5,
			Max:  500.25,
			Mean: 100.75,
			P50:  80.5,
			P75:  150.5,
			P90:  200.25,
			P95:  300.5,
			P99:  400.5,
			P999: 490.5,
		},
	}

	tests := []struct {
		metric    string
		aggregate string
		want      float64
	}{
		{"latency", "p50", 80.5},
		{"latency", "p75", 150.5},
		{"latency", "p90", 200.25},
		{"latency", "p95", 300.5},
		{"latency", "p99", 400.5},
		{"latency", "p999", 490.5},
		{"latency", "avg", 100.75},
		{"latency", "mean", 100.75},
		{"latency", "min", 10.5},
		{"latency", "max", 500.25},
		{"errors", "rate", 0.05},
		{"errors", "count", 50},
		{"requests", "rate", 123.45},
		{"requests", "count", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.metric+":"+tt.aggregate, func(t *testing.T) {
			extract, ok := extractors[tt.metric][tt.aggregate]
			if !ok {
				t.Fatalf("no extractor for %s:%s", tt.metric, tt.aggregate)
			}
			if got := extract(stats); got != tt.want {
				t.Errorf("extract() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateUnsupportedThreshold(t *testing.T) {
	res := evaluate(Threshold{Metric: "errors", Aggregate: "p95", Raw: "errors:p95 < 1"}, metrics.Stats{})
	if res.Pass {
		t.Fatal("unsupported threshold must not pass")
	}
	if res.Message == "" {
		t.Fatal("expected an explanatory message")
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed(nil) {
		t.Error("AllPassed(nil) = false, want true")
	}
	if AllPassed([]Result{{Pass: true}, {Pass: false}}) {
		t.Error("AllPassed() = true with a failure")
	}
}
