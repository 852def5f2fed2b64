package resilience

import (
	"sync"
	"testing"
	"time"
)

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})
	if b.cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.cfg.FailureThreshold)
	}
	if b.cfg.CoolDown != 30*time.Second {
		t.Errorf("CoolDown = %v, want 30s", b.cfg.CoolDown)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute})

	for i := 0; i < 2; i++ {
		b.ReportFailure()
		if b.State() != StateClosed {
			t.Fatalf("after %d failures state = %v, want closed", i+1, b.State())
		}
	}
	b.ReportFailure()
	if b.State() != StateOpen {
		t.Fatalf("after threshold state = %v, want open", b.State())
	}

	if allowed, _ := b.Allow(); allowed {
		t.Error("open breaker within cool-down must short-circuit")
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute})
	b.ReportFailure()
	b.ReportFailure()
	b.ReportSuccess()
	if b.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d, want 0", b.ConsecutiveFailures())
	}
	b.ReportFailure()
	if b.State() != StateClosed {
		t.Error("streak should have been reset by the success")
	}
}

func TestBreakerHalfOpenAfterCoolDown(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: 10 * time.Millisecond})
	b.ReportFailure()
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)

	allowed, trial := b.Allow()
	if !allowed || !trial {
		t.Fatalf("post-cool-down call should be the trial, got allowed=%v trial=%v", allowed, trial)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open", b.State())
	}

	// A second caller while the trial is in flight is treated as open.
	if allowed, _ := b.Allow(); allowed {
		t.Error("second caller during trial must be short-circuited")
	}
}

func TestBreakerTrialSuccessCloses(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: time.Millisecond})
	b.ReportFailure()
	time.Sleep(5 * time.Millisecond)

	if allowed, trial := b.Allow(); !allowed || !trial {
		t.Fatal("expected trial slot")
	}
	b.ReportSuccess()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful trial", b.State())
	}
	if b.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d, want 0", b.ConsecutiveFailures())
	}
	if allowed, trial := b.Allow(); !allowed || trial {
		t.Error("closed breaker should allow without a trial")
	}
}

func TestBreakerTrialFailureReopensWithFullCoolDown(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: 50 * time.Millisecond})
	b.ReportFailure()
	time.Sleep(60 * time.Millisecond)

	if allowed, trial := b.Allow(); !allowed || !trial {
		t.Fatal("expected trial slot")
	}
	b.ReportFailure()

	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after failed trial", b.State())
	}
	// The cool-down restarted; an immediate call is still blocked.
	if allowed, _ := b.Allow(); allowed {
		t.Error("failed trial must reapply the full cool-down")
	}
}

func TestBreakerCancelledTrialReleasesSlot(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: time.Millisecond})
	failures := 0
	b.ReportFailure()
	failures++
	time.Sleep(5 * time.Millisecond)

	if allowed, trial := b.Allow(); !allowed || !trial {
		t.Fatal("expected trial slot")
	}
	b.ReportCancelled(true)

	// Cancellation is neither success nor failure.
	if got := b.ConsecutiveFailures(); got != failures {
		t.Errorf("consecutive failures = %d, want %d (cancellation must not touch counters)", got, failures)
	}
	// The slot is free again for the next caller.
	if allowed, trial := b.Allow(); !allowed || !trial {
		t.Error("next caller should get the released trial slot")
	}
}

func TestBreakerConcurrentTrialExclusion(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: time.Millisecond})
	b.ReportFailure()
	time.Sleep(5 * time.Millisecond)

	var mu sync.Mutex
	trials := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, trial := b.Allow(); allowed && trial {
				mu.Lock()
				trials++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if trials != 1 {
		t.Errorf("exactly one concurrent caller may own the trial, got %d", trials)
	}
}

func TestBreakerTransitionCallbacks(t *testing.T) {
	type change struct{ from, to BreakerState }
	var mu sync.Mutex
	var changes []change

	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		CoolDown:         time.Millisecond,
		OnStateChange: func(from, to BreakerState, reason string) {
			mu.Lock()
			changes = append(changes, change{from, to})
			mu.Unlock()
		},
	})

	b.ReportFailure() // closed -> open
	time.Sleep(5 * time.Millisecond)
	b.Allow()         // open -> half-open
	b.ReportSuccess() // half-open -> closed

	want := []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != len(want) {
		t.Fatalf("got %d transitions, want %d: %+v", len(changes), len(want), changes)
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("transition %d = %v, want %v", i, changes[i], w)
		}
	}
}
