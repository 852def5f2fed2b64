package resilience

import (
	"sync"
	"time"
)

// BreakerState is the health state of an endpoint.
type BreakerState int

const (
	// StateClosed means calls pass through normally.
	StateClosed BreakerState = iota
	// StateOpen means calls are short-circuited without touching the
	// transport.
	StateOpen
	// StateHalfOpen means a single trial call is probing for recovery.
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// CoolDown is how long an open circuit waits before permitting a
	// half-open trial. Default: 30 seconds.
	CoolDown time.Duration

	// OnStateChange is called, outside the breaker lock, whenever the
	// state changes.
	OnStateChange func(from, to BreakerState, reason string)
}

// Breaker tracks the health of one endpoint across many calls. Exactly one
// Breaker exists per configured endpoint; it is shared by every caller and
// guarded by a single mutex. It is constructed once at wiring time and
// lives for the process lifetime — never destroyed, only reset by its own
// transitions.
type Breaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
	pending             []transition
}

// NewBreaker creates a Breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a call may proceed. The second result is true when
// the caller holds the half-open trial slot and must report an outcome (or
// a cancellation) to release it. The check-and-claim of the trial slot is
// a single atomic transition under the lock, so two concurrent callers can
// never both believe they own the trial.
func (b *Breaker) Allow() (allowed, trial bool) {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return true, false

	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.CoolDown {
			b.mu.Unlock()
			return false, false
		}
		// Cool-down elapsed: this caller becomes the half-open trial.
		b.setStateLocked(StateHalfOpen, "cool-down elapsed")
		b.trialInFlight = true
		b.unlockAndNotify()
		return true, true

	case StateHalfOpen:
		if b.trialInFlight {
			// Treated as if still open.
			b.mu.Unlock()
			return false, false
		}
		b.trialInFlight = true
		b.mu.Unlock()
		return true, true
	}

	b.mu.Unlock()
	return false, false
}

// ReportSuccess records a successful call.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	b.consecutiveFailures = 0
	if b.state == StateHalfOpen {
		b.trialInFlight = false
		b.setStateLocked(StateClosed, "trial succeeded")
	}
	b.unlockAndNotify()
}

// ReportFailure records a failed call (after the retry loop has given up).
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openedAt = time.Now()
			b.setStateLocked(StateOpen, "failure threshold reached")
		}
	case StateHalfOpen:
		// Failed trial: reopen and restart the full cool-down.
		b.trialInFlight = false
		b.openedAt = time.Now()
		b.setStateLocked(StateOpen, "trial failed")
	}
	b.unlockAndNotify()
}

// ReportCancelled records that the caller abandoned the call. Cancellation
// is neither success nor failure: counters are untouched, and a held trial
// slot is released so the next caller can probe instead.
func (b *Breaker) ReportCancelled(trial bool) {
	b.mu.Lock()
	if trial {
		b.trialInFlight = false
	}
	b.mu.Unlock()
}

// State returns the current state without advancing it.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

// setStateLocked records a transition; the notification fires after the
// lock is released by unlockAndNotify.
func (b *Breaker) setStateLocked(to BreakerState, reason string) {
	if b.state == to {
		return
	}
	b.pending = append(b.pending, transition{from: b.state, to: to, reason: reason})
	b.state = to
}

type transition struct {
	from, to BreakerState
	reason   string
}

// unlockAndNotify releases the lock and fires queued OnStateChange
// callbacks. Callbacks run outside the lock so a slow audit sink cannot
// stall concurrent callers.
func (b *Breaker) unlockAndNotify() {
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if b.cfg.OnStateChange == nil {
		return
	}
	for _, tr := range pending {
		b.cfg.OnStateChange(tr.from, tr.to, tr.reason)
	}
}
