package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDown     = errors.New("connection refused")
	errDeadlock = errors.New("deadlock detected")
)

func fast(r *Retrier) *Retrier {
	r.BaseDelay = time.Millisecond
	r.MaxDelay = time.Millisecond
	return r
}

func TestStartupRetrierRetriesEveryError(t *testing.T) {
	var attempts []int
	r := fast(StartupRetrier(func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 6, calls)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, attempts)
}

func TestStopsOnFirstSuccess(t *testing.T) {
	r := fast(CacheRetrier(nil))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTxRetrierOnlyReplaysTransientErrors(t *testing.T) {
	r := fast(TxRetrier(func(err error) bool { return errors.Is(err, errDeadlock) }))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 1, calls)

	calls = 0
	err = r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errDeadlock
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCancelledContextReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Retrier{MaxAttempts: 5, BaseDelay: time.Hour}

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 1, calls)

	err = r.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayDoublesAndCaps(t *testing.T) {
	r := &Retrier{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, time.Second, r.Delay(1))
	assert.Equal(t, 2*time.Second, r.Delay(2))
	assert.Equal(t, 3*time.Second, r.Delay(3))
	assert.Equal(t, 3*time.Second, r.Delay(40))
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	_ = (&Retrier{}).Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	})
	assert.Equal(t, 1, calls)
}
