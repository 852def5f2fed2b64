package resilience

import (
	"testing"
	"time"
)

func TestNextDelayStopsOnPermanent(t *testing.T) {
	p := DefaultRetryPolicy()
	if _, retry := p.NextDelay(Attempt{Number: 1, LastKind: KindPermanent}); retry {
		t.Error("permanent failure should never be retried")
	}
}

func TestNextDelayStopsAtMaxAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second}

	if _, retry := p.NextDelay(Attempt{Number: 2, LastKind: KindTransient}); !retry {
		t.Error("attempt 2 of 3 should be retried")
	}
	if _, retry := p.NextDelay(Attempt{Number: 3, LastKind: KindTransient}); retry {
		t.Error("attempt 3 of 3 should not be retried")
	}
}

func TestNextDelayExponentialBounds(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:    10,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		JitterFraction: 0.2,
	}

	for n := 1; n < 10; n++ {
		ideal := p.BaseDelay << (n - 1)
		if ideal > p.MaxDelay {
			ideal = p.MaxDelay
		}
		lo := time.Duration(float64(ideal) * (1 - p.JitterFraction))
		hi := time.Duration(float64(ideal) * (1 + p.JitterFraction))

		for i := 0; i < 100; i++ {
			d, retry := p.NextDelay(Attempt{Number: n, LastKind: KindTransient})
			if !retry {
				t.Fatalf("attempt %d: expected retry", n)
			}
			if d < lo || d > hi {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", n, d, lo, hi)
			}
		}
	}
}

func TestNextDelayCapsAtMax(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 64, BaseDelay: time.Second, MaxDelay: 8 * time.Second}

	// Attempt numbers far past the cap, including shift-overflow range.
	for _, n := range []int{5, 10, 40, 63} {
		d, retry := p.NextDelay(Attempt{Number: n, LastKind: KindTransient})
		if !retry {
			t.Fatalf("attempt %d: expected retry", n)
		}
		if d != p.MaxDelay {
			t.Errorf("attempt %d: delay = %v, want cap %v", n, d, p.MaxDelay)
		}
	}
}

func TestNextDelayWithoutJitterIsDeterministic(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, w := range want {
		d, retry := p.NextDelay(Attempt{Number: i + 1, LastKind: KindTransient})
		if !retry {
			t.Fatalf("attempt %d: expected retry", i+1)
		}
		if d != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, d, w)
		}
	}
}
