package retry

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultMaxRetries means an operation is attempted at most 4 times.
	DefaultMaxRetries = 3

	defaultBaseDelay = 300 * time.Millisecond
	defaultMaxDelay  = 3 * time.Second

	authBaseDelay = 500 * time.Millisecond
	authMaxDelay  = 5 * time.Second
)

// Options controls the retry behaviour of Do.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Option mutates the retry Options.
type Option func(*Options)

// WithMaxRetries overrides the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// AuthCritical uses the slower backoff schedule reserved for session and
// profile operations, where giving up too early logs the user out.
func AuthCritical() Option {
	return func(o *Options) {
		o.BaseDelay = authBaseDelay
		o.MaxDelay = authMaxDelay
	}
}

// Do executes op, retrying on failure with exponential backoff. The delay
// doubles per attempt and is capped at MaxDelay; no jitter is applied. When
// all attempts fail the error of the last attempt is returned unchanged.
func Do[T any](ctx context.Context, name string, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	options := Options{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&options)
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("%s: attempt %d/%d failed: %v", name, attempt+1, options.MaxRetries+1, err)

		if attempt == options.MaxRetries {
			break
		}

		delay := options.BaseDelay << attempt
		if delay > options.MaxDelay {
			delay = options.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
