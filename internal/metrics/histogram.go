package metrics

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// Latencies are tracked in whole milliseconds from 1ms up to one hour.
	lowestTrackableMs  = 1
	highestTrackableMs = 3_600_000

	globalSigFigs = 3
	windowSigFigs = 2
)

// Histogram is a log-linear latency distribution in milliseconds.
// Percentiles are approximate with bounded relative error. The zero value
// is not usable; construct with NewHistogram.
type Histogram struct {
	h *hdrhistogram.Histogram
}

// NewHistogram creates a histogram with the given number of significant digits.
func NewHistogram(sigFigs int) *Histogram {
	return &Histogram{h: hdrhistogram.New(lowestTrackableMs, highestTrackableMs, sigFigs)}
}

// Record inserts a value, clamping it into the trackable range.
func (h *Histogram) Record(ms int64) {
	if ms < lowestTrackableMs {
		ms = lowestTrackableMs
	}
	if ms > highestTrackableMs {
		ms = highestTrackableMs
	}
	_ = h.h.RecordValue(ms)
}

// RecordLatency records a duration rounded to the nearest millisecond.
func (h *Histogram) RecordLatency(d time.Duration) {
	h.Record(latencyToMs(d))
}

// Percentile returns the approximate value at q (0-100). Empty histograms yield 0.
func (h *Histogram) Percentile(q float64) float64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return float64(h.h.ValueAtQuantile(q))
}

func (h *Histogram) Min() float64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return float64(h.h.Min())
}

func (h *Histogram) Max() float64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return float64(h.h.Max())
}

func (h *Histogram) Mean() float64 {
	if h.h.TotalCount() == 0 {
		return 0
	}
	return h.h.Mean()
}

func (h *Histogram) Count() int64 {
	return h.h.TotalCount()
}

func (h *Histogram) Reset() {
	h.h.Reset()
}

// latencyToMs rounds to the nearest millisecond and floors at 1ms.
func latencyToMs(d time.Duration) int64 {
	ms := int64(math.Round(float64(d) / float64(time.Millisecond)))
	if ms < 1 {
		return 1
	}
	return ms
}
