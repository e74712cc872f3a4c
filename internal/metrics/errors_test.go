package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/torosent/apexload/internal/metrics"
)

type customFailureError struct{}

func (customFailureError) Error() string { return "custom" }

func TestClassifyError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "Request timeout"},
		{"wrapped deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, "Request timeout"},
		{"cancelled", fmt.Errorf("do: %w", context.Canceled), "Request cancelled"},
		{"refused", &url.Error{Op: "Get", URL: "http://x", Err: refused}, "Connection refused"},
		{"unexpected eof", io.ErrUnexpectedEOF, "Connection closed"},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere.invalid"}, "DNS lookup failed"},
		{"custom type", customFailureError{}, "Custom Failure Error (metrics_test)"},
		{"plain", errors.New("boom"), "Request error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metrics.ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "Unknown error"},
		{"*runner.HTTPError", "HTTP error response"},
		{"*url.Error", "Request URL error"},
		{"*github.com/x/y/pkg.TLSHandshakeError", "TLS Handshake Error (pkg)"},
		{"main.boomError", "Boom Error"},
	}
	for _, tt := range tests {
		if got := metrics.FriendlyErrorName(tt.input); got != tt.want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
