package replica

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorYakushenko/Carsties/internal/retry"
)

// bulkClient serves ListAuctions, failing the first failures calls.
type bulkClient struct {
	mu       sync.Mutex
	auctions []*Auction
	failures int
	calls    int
}

func (c *bulkClient) ListAuctions(ctx context.Context) ([]*Auction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("auction service unreachable")
	}
	return c.auctions, nil
}

func fastReconcilePolicy(attempts int) retry.ReconcilePolicy {
	return retry.ReconcilePolicy{Interval: time.Millisecond, MaxAttempts: attempts}
}

func TestReconcilePopulatesStore(t *testing.T) {
	now := time.Now().UTC()
	client := &bulkClient{auctions: []*Auction{auctionAt("a1", now), auctionAt("a2", now)}}
	store := NewMemoryStore()

	err := Reconcile(context.Background(), client, store, fastReconcilePolicy(3), slog.Default())
	require.NoError(t, err)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReconcileRetriesBulkFetch(t *testing.T) {
	now := time.Now().UTC()
	client := &bulkClient{auctions: []*Auction{auctionAt("a1", now)}, failures: 2}
	store := NewMemoryStore()

	err := Reconcile(context.Background(), client, store, fastReconcilePolicy(5), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)

	_, err = store.Get(context.Background(), "a1")
	assert.NoError(t, err)
}

func TestReconcileDegradesOnExhaustion(t *testing.T) {
	client := &bulkClient{failures: 100}
	store := NewMemoryStore()

	err := Reconcile(context.Background(), client, store, fastReconcilePolicy(3), slog.Default())
	require.Error(t, err, "exhaustion is reported, the caller decides to degrade")
	assert.Equal(t, 3, client.calls)

	list, _ := store.List(context.Background())
	assert.Empty(t, list)
}

func TestReconcileDoesNotRollBackNewerEvents(t *testing.T) {
	now := time.Now().UTC()

	// The bulk snapshot is older than an event applied concurrently.
	snapshot := auctionAt("a1", now.Add(-time.Minute))
	snapshot.Make = "Old"
	client := &bulkClient{auctions: []*Auction{snapshot}}

	store := NewMemoryStore()
	fresh := auctionAt("a1", now)
	fresh.Make = "New"
	require.NoError(t, store.Upsert(context.Background(), fresh))

	err := Reconcile(context.Background(), client, store, fastReconcilePolicy(3), slog.Default())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Make)
}
