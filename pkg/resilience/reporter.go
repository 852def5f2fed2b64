package resilience

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stanza-ai/stanza/pkg/models"
)

// AuditSink persists audit events. *audit.Store satisfies it.
type AuditSink interface {
	Record(ctx context.Context, ev models.AuditEvent) error
}

// Reporter emits one structured record per degraded serve and per breaker
// state transition, fanned out to the log and an audit sink. A nil
// Reporter is safe to call.
type Reporter struct {
	endpoint string
	log      logrus.FieldLogger
	sink     AuditSink
}

// NewReporter creates a Reporter for the named endpoint. Either log or
// sink may be nil.
func NewReporter(endpoint string, log logrus.FieldLogger, sink AuditSink) *Reporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{endpoint: endpoint, log: log, sink: sink}
}

// StaleServe records that a response was served from cache instead of a
// live call. It is called exactly once per occurrence, never per attempt.
func (r *Reporter) StaleServe(ctx context.Context, fingerprint, reason string, age time.Duration) {
	if r == nil {
		return
	}
	r.log.WithFields(logrus.Fields{
		"endpoint":    r.endpoint,
		"fingerprint": fingerprint,
		"reason":      reason,
		"age":         age.Round(time.Millisecond).String(),
	}).Warn("serving stale cached response")

	r.record(ctx, models.AuditEvent{
		ID:          uuid.NewString(),
		Kind:        models.AuditDegradedServe,
		Endpoint:    r.endpoint,
		Fingerprint: fingerprint,
		Reason:      reason,
		AgeMs:       age.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	})
}

// Transition records a breaker state change.
func (r *Reporter) Transition(from, to BreakerState, reason string) {
	if r == nil {
		return
	}
	r.log.WithFields(logrus.Fields{
		"endpoint": r.endpoint,
		"from":     from.String(),
		"to":       to.String(),
		"reason":   reason,
	}).Info("circuit breaker state changed")

	r.record(context.Background(), models.AuditEvent{
		ID:        uuid.NewString(),
		Kind:      models.AuditBreakerTransition,
		Endpoint:  r.endpoint,
		Reason:    reason,
		FromState: from.String(),
		ToState:   to.String(),
		CreatedAt: time.Now().UTC(),
	})
}

func (r *Reporter) record(ctx context.Context, ev models.AuditEvent) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(ctx, ev); err != nil {
		r.log.WithError(err).Warn("audit record failed")
	}
}
