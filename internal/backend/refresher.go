package backend

import (
	"log"
	"sync"
	"time"
)

// refreshLeeway is how long before expiry a session token is renewed.
const refreshLeeway = 60 * time.Second

// minRenewDelay floors rescheduling after a refresh so tokens shorter than
// the leeway cannot spin the refresh loop.
const minRenewDelay = time.Second

// TokenRefresher schedules proactive session renewal. A refresh may race a
// user-initiated session check; both paths call the same idempotent refresh
// function, so the race is benign.
type TokenRefresher struct {
	refresh func() (time.Time, error)

	mu    sync.Mutex
	timer *time.Timer
	now   func() time.Time
}

// NewTokenRefresher wires the refresh function, which renews the session and
// returns the new expiry.
func NewTokenRefresher(refresh func() (time.Time, error)) *TokenRefresher {
	return &TokenRefresher{refresh: refresh, now: time.Now}
}

// Schedule arranges for a refresh shortly before expiry. An expiry within
// the leeway (or already past) triggers an immediate refresh.
func (r *TokenRefresher) Schedule(expiry time.Time) {
	until := expiry.Sub(r.now())
	if until <= refreshLeeway {
		r.runRefresh()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(until-refreshLeeway, r.runRefresh)
}

// Stop cancels any pending refresh timer.
func (r *TokenRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *TokenRefresher) runRefresh() {
	expiry, err := r.refresh()
	if err != nil {
		log.Printf("token refresh failed: %v", err)
		return
	}

	delay := expiry.Sub(r.now()) - refreshLeeway
	if delay < minRenewDelay {
		delay = minRenewDelay
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(delay, r.runRefresh)
}
