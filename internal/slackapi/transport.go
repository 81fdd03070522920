package slackapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// loggingTransport logs every Web API request with its status and latency.
// Request bodies carry the token and are never logged.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func newLoggingTransport(next http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Dur("duration", duration).Msg("slack request failed")
		return nil, err
	}
	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("slack request")
	return resp, nil
}

// withLogging returns a copy of hc whose transport logs each request.
func withLogging(hc *http.Client, logger zerolog.Logger) *http.Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	wrapped := *hc
	wrapped.Transport = newLoggingTransport(hc.Transport, logger)
	return &wrapped
}
