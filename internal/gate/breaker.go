package gate

import "github.com/patchpilot/governor/internal/config"

// #region breaker

// BreakerState is the circuit breaker position.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
)

func (s BreakerState) String() string {
	if s == BreakerOpen {
		return "open"
	}
	return "closed"
}

// breaker is a two-state violation counter. There is no timed half-open
// recovery: once open, it stays open until an operator clears it.
// Callers hold the gate mutex.
type breaker struct {
	state      BreakerState
	violations int
}

// record counts one violation and reports whether this violation tripped
// the breaker from closed to open.
func (b *breaker) record() bool {
	b.violations++
	if b.state == BreakerClosed && b.violations >= config.BreakerViolationLimit {
		b.state = BreakerOpen
		return true
	}
	return false
}

// trip opens the breaker directly.
func (b *breaker) trip() {
	b.state = BreakerOpen
}

// reset returns to closed with a zero counter.
func (b *breaker) reset() {
	b.state = BreakerClosed
	b.violations = 0
}

// #endregion breaker
