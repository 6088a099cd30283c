// Package retry repeats an operation with capped exponential backoff.
//
// Three policies are used:
//   - StartupRetrier waits for Postgres while containers come up
//   - CacheRetrier gives redis a short chance before running without it
//   - TxRetrier replays an award transaction that lost a deadlock
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Retrier runs an operation up to MaxAttempts times. The delay before retry
// n is BaseDelay*2^(n-1), capped at MaxDelay and spread by +/- Jitter.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64

	// RetryIf decides whether err is worth another attempt. Nil retries
	// every error.
	RetryIf func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do returns nil on the first success, otherwise the last error. A cancelled
// context stops the loop and returns the last operation error if there was
// one.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || (r.RetryIf != nil && !r.RetryIf(lastErr)) {
			return lastErr
		}

		delay := r.Delay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// Delay is the wait after the given failed attempt.
func (r *Retrier) Delay(attempt int) time.Duration {
	d := r.BaseDelay
	for i := 1; i < attempt && d < r.MaxDelay; i++ {
		d *= 2
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if r.Jitter > 0 {
		d += time.Duration(float64(d) * r.Jitter * (rand.Float64()*2 - 1))
	}
	if d < 0 {
		return 0
	}
	return d
}

// StartupRetrier waits roughly 15s in total for the database to accept
// connections. Every error is retried: a refused dial and a failed auth
// look the same from here.
func StartupRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return &Retrier{
		MaxAttempts: 6,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
		OnRetry:     onRetry,
	}
}

// CacheRetrier is for redis, which is optional. Three quick tries, then the
// caller carries on without it.
func CacheRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return &Retrier{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    time.Second,
		Jitter:      0.1,
		OnRetry:     onRetry,
	}
}

// TxRetrier replays a transaction when isTransient reports the failure was
// a lost race (deadlock or serialization failure) rather than a real error.
func TxRetrier(isTransient func(error) bool) *Retrier {
	return &Retrier{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
		Jitter:      0.5,
		RetryIf:     isTransient,
	}
}
