package runner

import "fmt"

// Status is the lifecycle state of a load test.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusError
)

var statusNames = [...]string{
	StatusIdle:      "idle",
	StatusRunning:   "running",
	StatusCompleted: "completed",
	StatusError:     "error",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further results will be accepted for the test.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}
