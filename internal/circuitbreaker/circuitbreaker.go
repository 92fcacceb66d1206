// Package circuitbreaker short-circuits dispatch attempts against a
// processor that keeps failing, so hard-down upstreams cost a requeue
// instead of a timed-out HTTP call.
package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

type Breaker struct {
	mu              sync.RWMutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	maxFailures    int
	cooldown       time.Duration
	resetThreshold int
}

func New(maxFailures int, cooldown time.Duration, resetThreshold int) *Breaker {
	return &Breaker{
		maxFailures:    maxFailures,
		cooldown:       cooldown,
		resetThreshold: resetThreshold,
		state:          StateClosed,
	}
}

// Allow reports whether an attempt may proceed. An open breaker lets
// attempts through again once the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		return time.Since(b.lastFailureTime) >= b.cooldown
	default:
		return false
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	switch b.state {
	case StateOpen:
		b.state = StateHalfOpen
		b.successCount = 1
	case StateHalfOpen:
		if b.successCount >= b.resetThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.maxFailures {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successCount = 0
	}
}

func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
