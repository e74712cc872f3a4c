package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"
	"syscall"
)

var friendlyAliases = map[string]string{
	"*runner.HTTPError":              "HTTP error response",
	"runner.HTTPError":               "HTTP error response",
	"*url.Error":                     "Request URL error",
	"url.Error":                      "Request URL error",
	"*net.OpError":                   "Network error",
	"*net.DNSError":                  "DNS lookup failed",
	"*context.deadlineExceededError": "Request timeout",
	"context.deadlineExceededError":  "Request timeout",
	"*errors.errorString":            "Request error",
}

// ClassifyError maps a request failure to a short, stable label used for
// the error breakdown.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "Request timeout"
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "Connection reset"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "Connection closed"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS lookup failed"
	}

	return FriendlyErrorName(fmt.Sprintf("%T", err))
}

var (
	lowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymEnd = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// FriendlyErrorName turns a Go type name such as "*tls.RecordHeaderError"
// into "Record Header Error (tls)". Well known types map to fixed labels.
func FriendlyErrorName(typeName string) string {
	name := strings.TrimSpace(typeName)
	if name == "" {
		return "Unknown error"
	}
	if alias, ok := friendlyAliases[name]; ok {
		return alias
	}
	name = strings.TrimPrefix(name, "*")
	if alias, ok := friendlyAliases[name]; ok {
		return alias
	}

	pkg, typ, found := strings.Cut(path.Base(name), ".")
	if !found {
		pkg, typ = "", pkg
	}

	words := strings.Fields(acronymEnd.ReplaceAllString(lowerUpper.ReplaceAllString(typ, "$1 $2"), "$1 $2"))
	for i, w := range words {
		if strings.ToUpper(w) != w {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	pretty := strings.Join(words, " ")
	if pretty == "" {
		pretty = typ
	}

	if pkg != "" && pkg != "main" {
		return pretty + " (" + pkg + ")"
	}
	return pretty
}
