package runner

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Start while a test is in flight.
var ErrAlreadyRunning = errors.New("load test already running")

// HTTPError represents a response whose status code is outside [200, 400).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
