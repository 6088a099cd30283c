package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBucket = errors.New("bucket down")

func fail(context.Context) error    { return errBucket }
func succeed(context.Context) error { return nil }

// clock lets tests move past the cool-down without sleeping.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *clock, *[]State) {
	var transitions []State
	c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cb := New(Settings{
		Name:             "test",
		FailureThreshold: threshold,
		Cooldown:         time.Minute,
		OnStateChange:    func(_ string, _, to State) { transitions = append(transitions, to) },
	})
	cb.now = c.now
	return cb, c, &transitions
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb, _, transitions := newTestBreaker(2)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBucket)
	assert.NoError(t, cb.Execute(ctx, succeed), "a success resets the count")
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBucket)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBucket)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, *transitions)
}

func TestTrialAfterCooldown(t *testing.T) {
	cb, c, transitions := newTestBreaker(1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	c.advance(time.Minute)

	// A failed trial reopens for another full cool-down.
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBucket)
	assert.Equal(t, StateOpen, cb.State())
	c.advance(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)

	c.advance(30 * time.Second)
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateOpen, StateHalfOpen, StateClosed}, *transitions)
}

func TestOneTrialAtATime(t *testing.T) {
	cb, c, _ := newTestBreaker(1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	c.advance(time.Minute)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestObjectStoreIgnoresCancellation(t *testing.T) {
	cb := ObjectStoreBreaker(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}
