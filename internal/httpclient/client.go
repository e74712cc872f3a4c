package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultContentType = "application/json"
	idleConnTimeout    = 30 * time.Second
)

// RequestSpec describes the request every worker repeats.
type RequestSpec struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     string
	BodyFile string
}

// RequestBuilder produces fresh *http.Request values for a fixed target.
type RequestBuilder struct {
	method  string
	target  *url.URL
	headers http.Header
	body    Body
}

// NewRequestBuilder validates the RequestSpec once so that every Build call only
// has to allocate.
func NewRequestBuilder(spec RequestSpec) (*RequestBuilder, error) {
	target, err := ParseTarget(spec.URL)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}

	body, err := NewBody(spec.Body, spec.BodyFile)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Content-Type", defaultContentType)
	for key, value := range spec.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)

		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}

		headers.Set(canonicalKey, value)
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: headers,
		body:    body,
	}, nil
}

// ParseTarget parses an absolute http(s) URL.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("target URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid target URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid target URL %q: missing host", raw)
	}
	return u, nil
}

// Origin returns scheme://host of the target.
func (b *RequestBuilder) Origin() string {
	return b.target.Scheme + "://" + b.target.Host
}

// Path returns the path and query the requests are issued against.
func (b *RequestBuilder) Path() string {
	return b.target.RequestURI()
}

func (b *RequestBuilder) Method() string {
	return b.method
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if b.body.Empty() {
		req, err := http.NewRequestWithContext(ctx, b.method, b.target.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header = b.headers.Clone()
		return req, nil
	}

	reader, err := b.body.Open()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target.String(), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	req.Header = b.headers.Clone()
	req.ContentLength = b.body.Len()
	req.GetBody = b.body.Open

	return req, nil
}

// NewWorkerClient returns a client that keeps at most one keep-alive
// connection to the target origin. Each worker owns one client, so
// connections are never shared between workers. The timeout covers the
// whole exchange including reading the response body. Redirects are
// returned to the caller rather than followed.
func NewWorkerClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          1,
		MaxIdleConnsPerHost:   1,
		MaxConnsPerHost:       1,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
