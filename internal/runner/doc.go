// Package runner provides the load test execution engine for apexload.
//
// A [Runner] drives one test at a time against a single HTTP target:
//   - a [SlotAllocator] hands out request sequence numbers up to the total
//   - one worker goroutine per virtual user claims slots and sends requests
//     over its own keep-alive connection
//   - every outcome flows into a [metrics.Collector]
//
// The engine is concurrency bound, not rate bound. Failed requests are
// recorded, never retried.
//
// # Basic Usage
//
//	r := runner.New(runner.WithLogger(logger))
//	r.Subscribe(runner.ObserverFuncs{
//		Progress: func(done, total int) { fmt.Printf("%d/%d\n", done, total) },
//	})
//	err := r.Start(ctx, runner.Config{
//		URL:           "https://api.example.com/health",
//		Concurrency:   10,
//		TotalRequests: 1000,
//		RampUp:        5 * time.Second,
//		Timeout:       2 * time.Second,
//	})
//	stats := r.Stats()
//
// # Lifecycle
//
// A runner moves from [StatusIdle] to [StatusRunning] and ends in
// [StatusCompleted] or [StatusError]. Start blocks until all workers have
// exited. Stop may be called from another goroutine at any time; it marks
// the test completed and returns immediately while in-flight requests drain.
//
// # Events
//
// Observers receive status, progress, result, complete and error events.
// Each recorded result produces a result event carrying a snapshot that
// already includes it, followed by a progress event. Completed counts are
// strictly increasing within a test.
//
// # Ramp-up
//
// With a non-zero RampUp, worker i starts i*RampUp/Concurrency after the
// first, so the last worker starts just before the ramp-up window ends.
package runner
