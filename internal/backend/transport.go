package backend

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RequestTimeout aborts any single outgoing request after this long.
const RequestTimeout = 10 * time.Second

// healthTransport wraps an http.RoundTripper and feeds the HealthMonitor:
// HTTP-ok responses record a success, transport-level failures a failure.
// Timeouts are enforced per request via context cancellation.
type healthTransport struct {
	base    http.RoundTripper
	monitor *HealthMonitor
	timeout time.Duration
}

func (t *healthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	req = req.WithContext(ctx)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		cancel()
		t.monitor.RecordFailure()
		return nil, err
	}

	if resp.StatusCode < 400 {
		t.monitor.RecordSuccess()
	}

	// Cancel once the body is fully read or closed, not before.
	resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// NewHTTPClient returns an HTTP client whose requests report into the given
// HealthMonitor and are bounded by the per-request timeout.
func NewHTTPClient(monitor *HealthMonitor) *http.Client {
	return &http.Client{
		Transport: &healthTransport{
			base:    http.DefaultTransport,
			monitor: monitor,
			timeout: RequestTimeout,
		},
	}
}
