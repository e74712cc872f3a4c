// Package threshold turns assertions such as "latency:p95 < 500" into
// pass/fail checks against a final metrics snapshot.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/apexload/internal/metrics"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string  // latency, errors or requests
	Aggregate string  // p95, avg, rate, count, ...
	Operator  string  // <, <=, >, >=, ==
	Value     float64 // right-hand side
	Raw       string  // original text, for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold `json:"-" yaml:"-"`
	Raw       string    `json:"threshold" yaml:"threshold"`
	Actual    float64   `json:"actual" yaml:"actual"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

type extractor func(metrics.Stats) float64

// Latency values are in milliseconds, rates are ratios or per second.
var extractors = map[string]map[string]extractor{
	"latency": {
		"min":  func(s metrics.Stats) float64 { return s.Latency.Min },
		"max":  func(s metrics.Stats) float64 { return s.Latency.Max },
		"avg":  func(s metrics.Stats) float64 { return s.Latency.Mean },
		"mean": func(s metrics.Stats) float64 { return s.Latency.Mean },
		"p50":  func(s metrics.Stats) float64 { return s.Latency.P50 },
		"p75":  func(s metrics.Stats) float64 { return s.Latency.P75 },
		"p90":  func(s metrics.Stats) float64 { return s.Latency.P90 },
		"p95":  func(s metrics.Stats) float64 { return s.Latency.P95 },
		"p99":  func(s metrics.Stats) float64 { return s.Latency.P99 },
		"p999": func(s metrics.Stats) float64 { return s.Latency.P999 },
	},
	"errors": {
		"rate":  func(s metrics.Stats) float64 { return s.ErrorRate },
		"count": func(s metrics.Stats) float64 { return float64(s.ErrorCount) },
	},
	"requests": {
		"rate":  func(s metrics.Stats) float64 { return s.Throughput },
		"count": func(s metrics.Stats) float64 { return float64(s.TotalRequests) },
	},
}

var (
	pattern   = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	operators = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true}
)

// Parse reads "metric:aggregate operator value", for example
// "latency:p99 <= 800", "errors:rate < 0.01" or "requests:rate > 100".
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}

	aggs, ok := extractors[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(extractors), ", "))
	}
	if _, ok := aggs[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggs), ", "))
	}
	if !operators[operator] {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every entry and reports all failures together.
func ParseMultiple(raw []string) ([]Threshold, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make([]Threshold, 0, len(raw))
	var problems []string
	for i, s := range raw {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return out, nil
}

// Evaluator checks a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate returns one Result per threshold, in order.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluate(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluate(t Threshold, stats metrics.Stats) Result {
	res := Result{Threshold: t, Raw: t.Raw}

	extract, ok := extractors[t.Metric][t.Aggregate]
	if !ok {
		res.Message = fmt.Sprintf("error: unsupported threshold %s:%s", t.Metric, t.Aggregate)
		return res
	}

	res.Actual = extract(stats)
	res.Pass = compareValues(res.Actual, t.Operator, t.Value)
	mark := "✓"
	if !res.Pass {
		mark = "✗"
	}
	res.Message = fmt.Sprintf("%s %s: %.2f %s %.2f", mark, t.Raw, res.Actual, t.Operator, t.Value)
	return res
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9
	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
