package backend

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRefresherRunsImmediatelyNearExpiry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})

	r := NewTokenRefresher(func() (time.Time, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(done)
		// Far-future expiry stops the chain from firing again in-test.
		return time.Now().Add(time.Hour), nil
	})
	defer r.Stop()

	// Expiry inside the leeway window means the session is effectively stale.
	r.Schedule(time.Now().Add(10 * time.Second))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh did not run for a near-expiry token")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
}

func TestRefresherDefersDistantExpiry(t *testing.T) {
	called := make(chan struct{}, 1)
	r := NewTokenRefresher(func() (time.Time, error) {
		called <- struct{}{}
		return time.Now().Add(time.Hour), nil
	})
	defer r.Stop()

	r.Schedule(time.Now().Add(time.Hour))

	select {
	case <-called:
		t.Fatal("refresh ran immediately for a distant expiry")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRefresherStopCancelsPending(t *testing.T) {
	called := make(chan struct{}, 1)
	r := NewTokenRefresher(func() (time.Time, error) {
		called <- struct{}{}
		return time.Now().Add(time.Hour), nil
	})

	r.Schedule(time.Now().Add(refreshLeeway + 30*time.Millisecond))
	r.Stop()

	select {
	case <-called:
		t.Fatal("refresh ran after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRefresherFloorsShortTokenRenewal(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	r := NewTokenRefresher(func() (time.Time, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		// Renewed token expires inside the leeway window.
		return time.Now().Add(30 * time.Second), nil
	})
	defer r.Stop()

	r.Schedule(time.Now().Add(10 * time.Second))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("short-lived tokens must wait out the floor before renewing again, calls = %d", calls)
	}
}

func TestRefresherStopsOnFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	r := NewTokenRefresher(func() (time.Time, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return time.Time{}, errors.New("backend unreachable")
	})
	defer r.Stop()

	r.Schedule(time.Now())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("a failed refresh must not reschedule itself, calls = %d", calls)
	}
}
