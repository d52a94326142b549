// Package transport issues the HTTP GET requests the WFS client depends on.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Transport is the single capability the WFS client needs from the network.
type Transport interface {
	Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error)
}

// Error is returned for any network or HTTP failure. StatusCode is zero when
// no response was received.
type Error struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	msg := "GET " + e.URL
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": upstream status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Func adapts an ordinary function to Transport.
type Func func(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error)

func (f Func) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	return f(ctx, rawURL, params, headers)
}
