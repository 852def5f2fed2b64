package resilience

import (
	"context"
	"errors"
	"net/http"

	"github.com/stanza-ai/stanza/pkg/api"
)

// Kind classifies a failed call for retry purposes.
type Kind int

const (
	// KindTransient failures are worth retrying: network errors, attempt
	// timeouts, 5xx and 429 responses.
	KindTransient Kind = iota
	// KindPermanent failures will not be fixed by retrying: 4xx other
	// than 429, and contract violations in a successful response.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classify sorts a transport failure into transient or permanent. It is a
// pure function over the error value; caller cancellation never reaches it
// (Send checks the caller's context first).
func Classify(err error) Kind {
	var se *api.StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusTooManyRequests || se.Code >= 500 {
			return KindTransient
		}
		return KindPermanent
	}

	// A 2xx body that violates the contract; retrying cannot fix it.
	if errors.Is(err, api.ErrMalformedResponse) {
		return KindPermanent
	}

	// Attempt timeouts surface as deadline errors from the per-attempt
	// context and are retryable.
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	// Everything else is a network-level failure: connection refused,
	// DNS, reset, and friends.
	return KindTransient
}
