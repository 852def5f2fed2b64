package models

import "time"

// Audit event kinds.
const (
	AuditDegradedServe     = "degraded_serve"
	AuditBreakerTransition = "breaker_transition"
)

// AuditEvent records a degraded-mode serve or a breaker state transition.
type AuditEvent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Reason      string    `json:"reason"`
	FromState   string    `json:"from_state,omitempty"`
	ToState     string    `json:"to_state,omitempty"`
	AgeMs       int64     `json:"age_ms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditQueryOpts filters audit event queries.
type AuditQueryOpts struct {
	Kind  string
	Since time.Time
	Limit int
}

// AuditStat is an aggregate count of events grouped by kind and day.
type AuditStat struct {
	Kind  string `json:"kind"`
	Day   string `json:"day"`
	Count int64  `json:"count"`
}
