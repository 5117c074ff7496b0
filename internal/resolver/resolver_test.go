package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorYakushenko/Carsties/internal/auctions"
	"github.com/VictorYakushenko/Carsties/internal/replica"
	"github.com/VictorYakushenko/Carsties/internal/retry"
)

// fakeClient serves a fixed set of auctions, optionally failing the first
// failures calls with a transport error.
type fakeClient struct {
	mu       sync.Mutex
	known    map[string]*replica.Auction
	failures int
	calls    int
}

func (c *fakeClient) GetAuction(ctx context.Context, id string) (*replica.Auction, error) {
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.failures
	c.mu.Unlock()

	if fail {
		return nil, errors.New("connection refused")
	}
	auction, ok := c.known[id]
	if !ok {
		return nil, auctions.ErrNotFound
	}
	copied := *auction
	return &copied, nil
}

func (c *fakeClient) ListAuctions(ctx context.Context) ([]*replica.Auction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := make([]*replica.Auction, 0, len(c.known))
	for _, auction := range c.known {
		copied := *auction
		list = append(list, &copied)
	}
	return list, nil
}

func fastFetchPolicy() retry.RemoteFetchPolicy {
	return retry.RemoteFetchPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsed:      100 * time.Millisecond,
	}
}

func remoteAuction(id string) *replica.Auction {
	return &replica.Auction{
		ID:           id,
		Seller:       "alice",
		ReservePrice: 50,
		AuctionEnd:   time.Now().Add(time.Hour),
	}
}

func TestResolveFromLocalReplica(t *testing.T) {
	store := replica.NewMemoryStore()
	ctx := context.Background()

	local := remoteAuction("a1")
	local.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Upsert(ctx, local))

	client := &fakeClient{known: map[string]*replica.Auction{}}
	r := New(store, client, fastFetchPolicy(), slog.Default())

	got, err := r.Resolve(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, 0, client.calls, "a replica hit never goes remote")
}

func TestResolveFallbackBackfillsReplica(t *testing.T) {
	store := replica.NewMemoryStore()
	client := &fakeClient{known: map[string]*replica.Auction{"a1": remoteAuction("a1")}}
	r := New(store, client, fastFetchPolicy(), slog.Default())
	ctx := context.Background()

	got, err := r.Resolve(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Seller)
	assert.False(t, got.UpdatedAt.IsZero(), "backfill stamps the fetch time")

	// The replica is now populated; a second resolve stays local.
	_, err = r.Resolve(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestResolveRetriesTransportErrors(t *testing.T) {
	store := replica.NewMemoryStore()
	client := &fakeClient{
		known:    map[string]*replica.Auction{"a1": remoteAuction("a1")},
		failures: 2,
	}
	r := New(store, client, fastFetchPolicy(), slog.Default())

	got, err := r.Resolve(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, 3, client.calls)
}

func TestResolveAbsentEverywhereIsNotFound(t *testing.T) {
	store := replica.NewMemoryStore()
	client := &fakeClient{known: map[string]*replica.Auction{}}
	r := New(store, client, fastFetchPolicy(), slog.Default())

	_, err := r.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, replica.ErrNotFound)
	assert.Greater(t, client.calls, 1,
		"not-found is retried in case the auction is not yet visible")
}

func TestResolveUnreachableDegradesToNotFound(t *testing.T) {
	store := replica.NewMemoryStore()
	client := &fakeClient{known: map[string]*replica.Auction{}, failures: 1 << 30}
	r := New(store, client, fastFetchPolicy(), slog.Default())

	_, err := r.Resolve(context.Background(), "a1")
	assert.ErrorIs(t, err, replica.ErrNotFound,
		"transport failures surface as not-found, never raw errors")
}

func TestResolveTombstonedGoesRemote(t *testing.T) {
	store := replica.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := remoteAuction("a1")
	stale.UpdatedAt = now
	require.NoError(t, store.Upsert(ctx, stale))
	require.NoError(t, store.Delete(ctx, "a1", now.Add(time.Second)))

	client := &fakeClient{known: map[string]*replica.Auction{"a1": remoteAuction("a1")}}
	r := New(store, client, fastFetchPolicy(), slog.Default())

	got, err := r.Resolve(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, 1, client.calls, "a tombstoned replica reads as absent")
}
