// Package resilience keeps practice sessions usable while a storage backend
// is unhealthy.
//
// [CircuitBreaker] stops calling a backend once it keeps failing and probes
// it again after a cool-down. [FallbackGroup] orders several backends of the
// same type, each behind its own breaker, and [KVFallback] applies that to
// [kv.Store] so a dead database degrades to the in-process store instead of
// failing every request.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has passed since the breaker tripped.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls. Enough
	// successful probes close the breaker; one failed probe re-opens it.
	StateHalfOpen
)

// String returns closed, open or half-open.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults.
const (
	DefaultMaxFailures  = 5
	DefaultResetTimeout = 30 * time.Second
	DefaultHalfOpenMax  = 1
)

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values take the
// package defaults.
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive backend failures that trip
	// a closed breaker.
	MaxFailures int

	// ResetTimeout is how long a tripped breaker rejects calls before it
	// admits probes.
	ResetTimeout time.Duration

	// HalfOpenMax is both the number of concurrent probes admitted while
	// half-open and the number of successful probes needed to close.
	HalfOpenMax int

	// OnStateChange is called after every transition. It runs with the
	// breaker's lock held and must not call back into the breaker.
	OnStateChange func(name string, from, to State)

	// Now replaces time.Now.
	Now func() time.Time
}

// outcome classifies a finished call.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	// outcomeAbandoned is a call the caller gave up on. It says nothing
	// about the backend.
	outcomeAbandoned
)

// CircuitBreaker guards calls to one backend.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	trippedAt time.Time
	inFlight  int
	probeOK   int
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultHalfOpenMax
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// Execute calls fn unless the breaker rejects it with [ErrCircuitOpen].
// A failure caused by ctx being cancelled or timing out is not held against
// the backend.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.settle(probe, classify(ctx, err))
	return err
}

func classify(ctx context.Context, err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return outcomeAbandoned
	default:
		return outcomeFailure
	}
}

// admit decides whether a call may run and whether it is a probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.cfg.Now().Sub(cb.trippedAt) < cb.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		cb.inFlight, cb.probeOK = 0, 0
		cb.transition(StateHalfOpen)
		slog.Info("circuit breaker probing backend", "name", cb.cfg.Name)
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.cfg.HalfOpenMax {
			return false, ErrCircuitOpen
		}
		cb.inFlight++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) settle(probe bool, o outcome) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !probe {
		switch o {
		case outcomeSuccess:
			cb.failures = 0
		case outcomeFailure:
			cb.failures++
			if cb.state == StateClosed && cb.failures >= cb.cfg.MaxFailures {
				cb.trip()
				slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "consecutive_failures", cb.failures)
			}
		}
		return
	}

	// The breaker may have been reset while the probe ran.
	if cb.state != StateHalfOpen {
		return
	}
	cb.inFlight--
	switch o {
	case outcomeFailure:
		cb.trip()
		slog.Warn("circuit breaker probe failed", "name", cb.cfg.Name)
	case outcomeSuccess:
		cb.probeOK++
		if cb.probeOK >= cb.cfg.HalfOpenMax {
			cb.failures = 0
			cb.transition(StateClosed)
			slog.Info("circuit breaker closed, backend recovered", "name", cb.cfg.Name)
		}
	}
}

// trip opens the breaker. Must be called with cb.mu held.
func (cb *CircuitBreaker) trip() {
	cb.trippedAt = cb.cfg.Now()
	cb.transition(StateOpen)
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(next State) {
	prev := cb.state
	cb.state = next
	if prev != next && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, prev, next)
	}
}

// State returns the current state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the transition itself happens on the
// next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.trippedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures, cb.inFlight, cb.probeOK = 0, 0, 0
	cb.transition(StateClosed)
}
