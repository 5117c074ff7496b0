package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryPolicyBoundsAttempts(t *testing.T) {
	policy := DeliveryPolicy{Interval: time.Millisecond, MaxAttempts: 3}

	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("still failing")
	}, policy.Backoff(context.Background()))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDeliveryPolicyZeroAttemptsRunsOnce(t *testing.T) {
	policy := DeliveryPolicy{Interval: time.Millisecond, MaxAttempts: 0}

	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("still failing")
	}, policy.Backoff(context.Background()))

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a zero budget must not become unbounded retries")
}

func TestReconcilePolicyZeroAttemptsRunsOnce(t *testing.T) {
	policy := ReconcilePolicy{Interval: time.Millisecond, MaxAttempts: 0}

	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("still failing")
	}, policy.Backoff(context.Background()))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPermanentErrorStopsImmediately(t *testing.T) {
	policy := DeliveryPolicy{Interval: time.Millisecond, MaxAttempts: 5}

	calls := 0
	err := Do(func() error {
		calls++
		return Permanent(errors.New("unfixable"))
	}, policy.Backoff(context.Background()))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRemoteFetchPolicyHonorsContext(t *testing.T) {
	policy := RemoteFetchPolicy{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		MaxElapsed:      time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("still failing")
	}, policy.Backoff(ctx))

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 3, "cancellation must cut the retry loop short")
}
