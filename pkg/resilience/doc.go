// Package resilience turns a single upstream call into one that tolerates
// transient failure, avoids hammering a dead endpoint, and serves
// stale-but-useful data when the endpoint is unavailable.
//
// Client.Send is the only entry point the rest of the application uses. It
// orchestrates four pieces, each independently testable:
//
//   - Classify: sorts a failure into transient (retryable) or permanent.
//   - RetryPolicy: a pure decision function mapping an attempt to the next
//     backoff delay, or to "stop". It never sleeps; Send owns suspension.
//   - ResponseCache: a bounded FIFO-with-TTL cache keyed by request
//     fingerprint. Expired values stay readable through PeekStale until
//     overwritten or evicted, which is what makes degraded serving work.
//   - Breaker: a Closed/Open/HalfOpen state machine per endpoint. While
//     open, Send skips the transport entirely and serves stale data when
//     it has any.
//
// A Reporter emits one structured audit record per stale serve and per
// breaker transition.
package resilience
