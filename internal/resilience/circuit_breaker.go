// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience implements the circuit breaker guarding the
// cataloguer-subprocess call site against failure storms: a flapping
// cataloguer binary should not be retried on every artist in a pass once
// it's clearly down. The safety probes do not use it.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/oxbow-labs/ingestord/internal/metrics"
)

// State represents the circuit breaker state.
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
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute when the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// clock abstracts time operations for testability.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CircuitBreaker trips open after threshold consecutive failures, waits
// resetTimeout before allowing a single probe request through (half-open),
// and closes again after successThreshold consecutive successes.
type CircuitBreaker struct {
	mu sync.Mutex

	name string

	state    State
	openedAt time.Time

	consecutiveFailures int
	threshold           int
	resetTimeout        time.Duration

	successes        int
	successThreshold int

	clock         clock
	panicRecovery bool
}

// Option configures a CircuitBreaker at construction.
type Option func(*CircuitBreaker)

// WithClock overrides the breaker's clock, for deterministic tests.
func WithClock(c clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithHalfOpenSuccessThreshold sets how many consecutive half-open
// successes are required before the breaker closes again.
func WithHalfOpenSuccessThreshold(n int) Option {
	return func(cb *CircuitBreaker) { cb.successThreshold = n }
}

// WithPanicRecovery controls whether Execute recovers a panicking fn,
// recording it as a failure before re-panicking.
func WithPanicRecovery(enabled bool) Option {
	return func(cb *CircuitBreaker) { cb.panicRecovery = enabled }
}

// NewCircuitBreaker creates a circuit breaker named name: it trips after
// threshold consecutive failures and stays open for resetTimeout before
// trying a half-open probe.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	cb := &CircuitBreaker{
		name:             name,
		state:            StateClosed,
		threshold:        threshold,
		resetTimeout:     resetTimeout,
		successThreshold: 1,
		clock:            realClock{},
	}

	for _, opt := range opts {
		opt(cb)
	}

	metrics.SetCircuitBreakerState(cb.name, cb.state.String())
	return cb
}

// Execute runs fn if the circuit allows it, recording the outcome.
// Returns ErrCircuitOpen without calling fn when the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	if cb.panicRecovery {
		defer func() {
			if r := recover(); r != nil {
				cb.RecordTechnicalFailure()
				panic(r)
			}
		}()
	}

	if err := fn(); err != nil {
		cb.RecordTechnicalFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.clock.Now().Sub(cb.openedAt) >= cb.resetTimeout {
			cb.transitionInto(StateHalfOpen)
			return true
		}
		return false
	default: // StateHalfOpen
		return true
	}
}

// RecordSuccess marks a successful completion, resetting the consecutive
// failure count and, in half-open, counting toward the close threshold.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transitionInto(StateClosed)
		}
	}
}

// RecordTechnicalFailure marks a failed call. A half-open failure trips the
// breaker back open immediately; a closed-state failure trips open once
// consecutive failures reach threshold.
func (cb *CircuitBreaker) RecordTechnicalFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.transitionInto(StateOpen)
		return
	}

	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.threshold {
		cb.transitionInto(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionInto(s State) {
	if cb.state == s {
		return
	}

	cb.state = s
	switch s {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
		metrics.RecordCircuitBreakerTrip(cb.name, "consecutive_failure_threshold")
	case StateHalfOpen:
		cb.successes = 0
	case StateClosed:
		cb.consecutiveFailures = 0
	}

	metrics.SetCircuitBreakerState(cb.name, s.String())
}

// State returns the current state as its string form ("closed", "open",
// "half-open"), matching the label values exported to metrics.
func (cb *CircuitBreaker) State() string {
	return cb.GetState().String()
}

// GetState returns the current typed state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
