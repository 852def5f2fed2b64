package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stanza-ai/stanza/pkg/api"
	"github.com/stanza-ai/stanza/pkg/audit"
	"github.com/stanza-ai/stanza/pkg/config"
	"github.com/stanza-ai/stanza/pkg/resilience"
)

// buildClient wires the transport, breaker, cache, and audit store into a
// resilient client. The returned cleanup closes the audit database.
func buildClient(cfg *config.Config) (*resilience.Client, *audit.Store, func(), error) {
	store, err := audit.New(cfg.Audit.DBPath, cfg.Audit.RetentionDays)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open audit db: %w", err)
	}

	reporter := resilience.NewReporter(cfg.Endpoint.BaseURL, logrus.StandardLogger(), store)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		CoolDown:         cfg.Resilience.CoolDown,
		OnStateChange: reporter.Transition,
	})

	var cache *resilience.ResponseCache
	if cfg.Cache.Enabled {
		cache = resilience.NewResponseCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	retry := resilience.RetryPolicy{
		MaxAttempts:    cfg.Resilience.MaxAttempts,
		BaseDelay:      cfg.Resilience.BaseDelay,
		MaxDelay:       cfg.Resilience.MaxDelay,
		JitterFraction: cfg.Resilience.JitterFraction,
	}

	transport := api.NewHTTPTransport(cfg.Endpoint.BaseURL, cfg.Endpoint.APIKey)
	client := resilience.NewClient(transport, breaker, cache, retry,
		resilience.WithReporter(reporter),
		resilience.WithAttemptTimeout(cfg.Endpoint.RequestTimeout),
	)

	return client, store, func() { _ = store.Close() }, nil
}
