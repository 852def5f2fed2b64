package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport performs one upstream call. The timeout bounds that single
// attempt; the context still cancels it early.
type Transport interface {
	Execute(ctx context.Context, path string, payload []byte, timeout time.Duration) ([]byte, error)
}

// Request is one logical upstream request.
type Request struct {
	// Path is the endpoint path, e.g. "/v1/chat/completions".
	Path string
	// Payload is the JSON body; nil means a GET.
	Payload []byte
}

// Source tags where a Result's payload came from.
type Source int

const (
	// SourceLive means the payload came from a live call or a fresh
	// cache hit.
	SourceLive Source = iota
	// SourceStale means the payload is expired cached data served
	// because a live call was not possible.
	SourceStale
)

func (s Source) String() string {
	if s == SourceStale {
		return "stale"
	}
	return "live"
}

// Result is the tagged outcome of Send. Callers distinguish live from
// degraded data by Source, never by inspecting timestamps.
type Result struct {
	Source   Source
	Payload  []byte
	StoredAt time.Time // original store time; zero for uncached live calls
	Reason   string    // why a stale result was served; empty for live
}

// Stale reports whether the result was served from expired cache.
func (r Result) Stale() bool { return r.Source == SourceStale }

// Client wraps a Transport with retries, circuit breaking, and cached
// degraded serving. It is safe for concurrent use; backoff sleeps are
// local to each call.
type Client struct {
	transport      Transport
	breaker        *Breaker
	cache          *ResponseCache
	retry          RetryPolicy
	reporter       *Reporter
	attemptTimeout time.Duration
	log            logrus.FieldLogger
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithReporter attaches a degraded-mode reporter.
func WithReporter(r *Reporter) ClientOption {
	return func(c *Client) { c.reporter = r }
}

// WithAttemptTimeout bounds each individual transport attempt.
func WithAttemptTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.attemptTimeout = d }
}

// WithLogger sets the client logger.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a resilient client. The breaker is required; cache may
// be nil to disable caching and degraded serving.
func NewClient(transport Transport, breaker *Breaker, cache *ResponseCache, retry RetryPolicy, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		breaker:   breaker,
		cache:     cache,
		retry:     retry,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the response cache for stats and clearing; nil when
// caching is disabled.
func (c *Client) Cache() *ResponseCache { return c.cache }

// Breaker exposes the shared breaker state for inspection.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Send performs one logical request through the full resilience pipeline:
// fresh cache hit, circuit check, retry-wrapped transport attempts, and
// stale fallback. Breaker state and the cache are the only shared state it
// mutates, and the breaker sees exactly one outcome per Send.
func (c *Client) Send(ctx context.Context, req Request) (Result, error) {
	fp := Fingerprint(req.Path, req.Payload)

	// A fresh hit is not the degraded path: no network, no breaker.
	if c.cache != nil {
		if payload, storedAt, ok := c.cache.Get(fp); ok {
			return Result{Source: SourceLive, Payload: payload, StoredAt: storedAt}, nil
		}
	}

	allowed, trial := c.breaker.Allow()
	if !allowed {
		return c.staleOrError(ctx, fp, ReasonCircuitOpen,
			fmt.Errorf("%w: circuit open for %s", ErrServiceUnavailable, req.Path))
	}

	payload, lastErr, lastKind := c.attemptLoop(ctx, req, trial)
	if lastErr == nil {
		c.breaker.ReportSuccess()
		if c.cache != nil {
			c.cache.Put(fp, payload)
		}
		return Result{Source: SourceLive, Payload: payload}, nil
	}
	if ctx.Err() != nil {
		// Caller cancellation was already reported inside the loop.
		return Result{}, lastErr
	}

	c.breaker.ReportFailure()

	if lastKind == KindPermanent {
		// Not an availability problem; surface it as-is.
		return Result{}, lastErr
	}
	return c.staleOrError(ctx, fp, ReasonLiveCallFailed,
		fmt.Errorf("%w: %v", ErrUpstream, lastErr))
}

// attemptLoop runs transport attempts until success, a permanent failure,
// retry exhaustion, or caller cancellation. Cancellation is reported to
// the breaker here (as neither success nor failure) and surfaces as
// ctx.Err().
func (c *Client) attemptLoop(ctx context.Context, req Request, trial bool) (payload []byte, lastErr error, lastKind Kind) {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		payload, err := c.transport.Execute(ctx, req.Path, req.Payload, c.attemptTimeout)
		if err == nil {
			return payload, nil, 0
		}

		if ctx.Err() != nil {
			c.breaker.ReportCancelled(trial)
			return nil, ctx.Err(), 0
		}

		lastErr = err
		lastKind = Classify(err)

		delay, retry := c.retry.NextDelay(Attempt{
			Number:   attempt,
			LastKind: lastKind,
			Elapsed:  time.Since(start),
		})
		if !retry {
			return nil, lastErr, lastKind
		}

		c.log.WithFields(logrus.Fields{
			"path":    req.Path,
			"attempt": attempt,
			"delay":   delay.Round(time.Millisecond).String(),
			"kind":    lastKind.String(),
		}).Debug("retrying after failure")

		select {
		case <-ctx.Done():
			c.breaker.ReportCancelled(trial)
			return nil, ctx.Err(), 0
		case <-time.After(delay):
		}
	}
}

// staleOrError downgrades an availability error to a stale success when
// the cache still holds a payload for the fingerprint.
func (c *Client) staleOrError(ctx context.Context, fp, reason string, failure error) (Result, error) {
	if c.cache != nil {
		if payload, storedAt, ok := c.cache.PeekStale(fp); ok {
			c.reporter.StaleServe(ctx, fp, reason, time.Since(storedAt))
			return Result{
				Source:   SourceStale,
				Payload:  payload,
				StoredAt: storedAt,
				Reason:   reason,
			}, nil
		}
	}
	return Result{}, failure
}
