package backend

import (
	"sync"
	"time"
)

// DefaultHealthWindow is how recent the last successful request must be for
// the connection to count as healthy.
const DefaultHealthWindow = 60 * time.Second

// HealthMonitor tracks backend reachability. Consumers receive it by
// injection; there is no package-level instance.
type HealthMonitor struct {
	mu          sync.Mutex
	healthy     bool
	lastSuccess time.Time
	window      time.Duration
	now         func() time.Time
}

// NewHealthMonitor creates a HealthMonitor with the default 60s window.
func NewHealthMonitor() *HealthMonitor {
	return newHealthMonitor(DefaultHealthWindow, time.Now)
}

func newHealthMonitor(window time.Duration, now func() time.Time) *HealthMonitor {
	return &HealthMonitor{window: window, now: now}
}

// RecordSuccess marks the connection healthy and refreshes the timestamp.
func (h *HealthMonitor) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = true
	h.lastSuccess = h.now()
}

// RecordFailure marks the connection unhealthy.
func (h *HealthMonitor) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = false
}

// IsHealthy reports whether the healthy flag is set and the last success
// happened within the window.
func (h *HealthMonitor) IsHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.healthy || h.lastSuccess.IsZero() {
		return false
	}
	return h.now().Sub(h.lastSuccess) <= h.window
}

// LastSuccess returns the timestamp of the most recent successful request.
func (h *HealthMonitor) LastSuccess() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSuccess
}
