package resilience

import (
	"math/rand"
	"time"
)

// Attempt is the ephemeral context of one outbound call's retry loop.
type Attempt struct {
	// Number is the 1-indexed attempt that just failed.
	Number int
	// LastKind is the classification of that failure.
	LastKind Kind
	// Elapsed is the time spent in the call so far.
	Elapsed time.Duration
}

// RetryPolicy decides whether a failed call is retried and how long to
// wait first. It is a pure decision function: it never sleeps, so the
// caller stays in charge of suspension and the policy is testable without
// real timing.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// JitterFraction perturbs each delay by a uniform random offset of
	// +/- this fraction of the delay, to avoid synchronized retry storms.
	JitterFraction float64
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 500ms base,
// 8s cap, 20% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		JitterFraction: 0.2,
	}
}

// NextDelay reports the backoff before the next attempt. It returns false
// when the call should not be retried: the budget is spent or the latest
// failure is permanent.
func (p RetryPolicy) NextDelay(att Attempt) (time.Duration, bool) {
	if att.LastKind == KindPermanent {
		return 0, false
	}
	if att.Number >= p.MaxAttempts {
		return 0, false
	}

	delay := p.BaseDelay << (att.Number - 1)
	if delay > p.MaxDelay || delay < p.BaseDelay { // the shift can overflow
		delay = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		offset := (rand.Float64()*2 - 1) * p.JitterFraction * float64(delay)
		delay += time.Duration(offset)
		if delay < 0 {
			delay = 0
		}
	}

	return delay, true
}
