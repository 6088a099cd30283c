// Package circuitbreaker stops calling a dependency after repeated failures
// and lets a single trial call through once a cool-down has passed.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling the operation while the breaker
// is open, or while a half-open trial is already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configure a breaker. Zero values fall back to 5 failures and a
// 30s cool-down.
type Settings struct {
	Name string

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	Cooldown         time.Duration

	// IsFailure filters which errors count. Nil counts every error.
	IsFailure func(error) bool

	OnStateChange func(name string, from, to State)
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// New creates a closed breaker.
func New(s Settings) *CircuitBreaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{settings: s, now: time.Now}
}

// Execute runs fn unless the breaker is open and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.Cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.trial = true
		return nil
	case StateHalfOpen:
		if cb.trial {
			return ErrCircuitOpen
		}
		cb.trial = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && (cb.settings.IsFailure == nil || cb.settings.IsFailure(err))
	wasTrial := cb.state == StateHalfOpen
	cb.trial = false

	if !failed {
		cb.failures = 0
		if wasTrial {
			cb.transition(StateClosed)
		}
		return
	}

	cb.failures++
	if wasTrial || cb.failures >= cb.settings.FailureThreshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

// State returns the current state. An open breaker whose cool-down has
// passed still reports open until the next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ObjectStoreBreaker guards the media bucket. Three failed uploads open it
// for 30s. A cancelled request says nothing about the bucket and is not
// counted.
func ObjectStoreBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:             "object-store",
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: onStateChange,
	})
}
