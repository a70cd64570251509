// Package httpclient implements the resilient HTTP client (spec §4.2, C2):
// circuit breaker wraps retry wraps 401-refresh wraps a single HTTP call.
package httpclient

import (
	"io"
)

// readBody reads and closes an HTTP response body, returning "" on read error.
func readBody(r io.ReadCloser) string {
	defer r.Close()
	b, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return ""
	}
	return string(b)
}
