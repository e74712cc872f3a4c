// Package httpclient builds the requests a load test repeats and the
// per-worker HTTP clients that send them.
//
// # Request Building
//
// A [RequestBuilder] is created once per test from a [RequestSpec]. The
// target URL, method, headers and body are validated up front, so a
// malformed target is reported before any worker starts:
//
//	builder, err := httpclient.NewRequestBuilder(httpclient.RequestSpec{
//		Method: "POST",
//		URL:    "https://api.example.com/orders?dry_run=1",
//		Body:   `{"sku":"A-1"}`,
//	})
//	req, err := builder.Build(ctx)
//
// Requests default to Content-Type application/json unless the RequestSpec sets
// its own Content-Type header.
//
// # Worker Clients
//
// [NewWorkerClient] returns a client limited to a single keep-alive
// connection, modelling one virtual user reusing its connection across
// requests instead of paying a new TCP/TLS handshake each time. Redirects
// are not followed, so 3xx responses reach the caller.
package httpclient
