// Package metrics aggregates per-request outcomes into latency distributions
// and a per-second timeline.
//
// # Collector
//
// The [Collector] is the single sink every worker reports into:
//
//	collector := metrics.NewCollector()
//	collector.Record(result)
//	stats := collector.Aggregate()
//
// Record keeps a full result log, feeds successful latencies into a global
// HDR histogram (1ms to 1h, 3 significant digits) and buffers every result
// into the current window. When a result arrives at least one second after
// the previous flush, the window is summarised into a [TimelinePoint]. There
// is no timer: under low throughput a window simply spans longer.
//
// # Statistics
//
// [Stats] is a read-only snapshot. Latency percentiles (P50 through P99.9)
// cover all successful requests of the test; the timeline's P50/P95 cover
// only their own window. Failed requests contribute to counts, error rate,
// the status-code breakdown and the error breakdown, never to latency.
//
// # Thread Safety
//
// All Collector methods take a single mutex, so the histogram and window
// state are never observed mid-update.
package metrics
