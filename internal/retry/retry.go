// Package retry defines the backoff policies used across the platform:
// one for the resolver's synchronous remote fetch, one for event-consumer
// delivery, and one for startup reconciliation. Each policy is bounded so
// every failure mode has an observable ceiling.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RemoteFetchPolicy governs the resolver's fallback call to the
// authoritative auction service. It retries transport errors and
// not-found responses (a just-created auction may not be visible yet)
// with exponential backoff, capped by a wall-clock budget so a caller
// never waits longer than MaxElapsed for a definite answer.
type RemoteFetchPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// DefaultRemoteFetchPolicy returns the production defaults.
func DefaultRemoteFetchPolicy() RemoteFetchPolicy {
	return RemoteFetchPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		MaxElapsed:      15 * time.Second,
	}
}

// Backoff builds a context-aware backoff for one resolution attempt.
func (p RemoteFetchPolicy) Backoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsed
	return backoff.WithContext(b, ctx)
}

// DeliveryPolicy governs how often a failed event application is retried
// before the event is routed to the dead-letter subject.
type DeliveryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultDeliveryPolicy matches the broker-side redelivery settings:
// five attempts, five seconds apart.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{Interval: 5 * time.Second, MaxAttempts: 5}
}

// Backoff builds a context-aware backoff for one delivery.
func (p DeliveryPolicy) Backoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), maxRetries(p.MaxAttempts))
	return backoff.WithContext(b, ctx)
}

// ReconcilePolicy governs the startup bulk fetch. On exhaustion the
// service starts anyway with a possibly incomplete replica store; the
// resolver's fallback covers the gap until the next reconciliation.
type ReconcilePolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultReconcilePolicy returns the production defaults.
func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{Interval: 10 * time.Second, MaxAttempts: 5}
}

// Backoff builds a context-aware backoff for one reconciliation run.
func (p ReconcilePolicy) Backoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), maxRetries(p.MaxAttempts))
	return backoff.WithContext(b, ctx)
}

// maxRetries converts an attempt budget into a retry count. Anything at
// or below one attempt means no retries, never an underflowed unbounded
// loop.
func maxRetries(attempts int) uint64 {
	if attempts <= 1 {
		return 0
	}
	return uint64(attempts - 1)
}

// Permanent marks err as non-retryable so backoff.Retry stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op under the given backoff until it succeeds, returns a
// permanent error, or the backoff is exhausted.
func Do(op func() error, b backoff.BackOff) error {
	return backoff.Retry(op, b)
}
