package resilience

import "errors"

// Sentinel errors surfaced by Client.Send.
var (
	// ErrServiceUnavailable is returned when the circuit is open and no
	// stale response exists for the fingerprint.
	ErrServiceUnavailable = errors.New("resilience: service unavailable")

	// ErrUpstream is returned when retries are exhausted and no stale
	// response exists for the fingerprint.
	ErrUpstream = errors.New("resilience: upstream failed")
)

// Reasons attached to stale results and audit records.
const (
	ReasonCircuitOpen    = "circuit open"
	ReasonLiveCallFailed = "live call failed"
)
