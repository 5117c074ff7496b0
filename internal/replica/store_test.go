package replica

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorYakushenko/Carsties/pkg/events"
)

func auctionAt(id string, ts time.Time) *Auction {
	return &Auction{
		ID:           id,
		Seller:       "alice",
		ReservePrice: 50,
		AuctionEnd:   ts.Add(24 * time.Hour),
		Make:         "Ford",
		UpdatedAt:    ts,
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Seller)
	assert.Equal(t, int64(50), got.ReservePrice)
}

func TestGetAbsent(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	auction := auctionAt("a1", now)
	require.NoError(t, store.Upsert(ctx, auction))
	require.NoError(t, store.Upsert(ctx, auction))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, auction.Make, got.Make)
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestUpsertStaleTimestampIsNoOp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	newer := auctionAt("a1", now)
	newer.Make = "Tesla"
	require.NoError(t, store.Upsert(ctx, newer))

	stale := auctionAt("a1", now.Add(-time.Minute))
	stale.Make = "Ford"
	require.NoError(t, store.Upsert(ctx, stale))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Tesla", got.Make, "older event must not overwrite newer state")
}

func TestDeleteTombstones(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))
	require.NoError(t, store.Delete(ctx, "a1", now.Add(time.Second)))

	_, err := store.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	// A stale update delivered after the delete must not resurrect it.
	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))
	_, err = store.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	// A genuinely newer create may recreate it.
	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now.Add(time.Minute))))
	_, err = store.Get(ctx, "a1")
	assert.NoError(t, err)
}

func TestDeleteOlderThanReplicaIsNoOp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))
	require.NoError(t, store.Delete(ctx, "a1", now.Add(-time.Minute)))

	_, err := store.Get(ctx, "a1")
	assert.NoError(t, err, "stale delete must not remove newer state")
}

func TestSetHighBidOnlyRaises(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))

	require.NoError(t, store.SetHighBid(ctx, "a1", "bob", 100))
	require.NoError(t, store.SetHighBid(ctx, "a1", "carol", 90))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.CurrentHighBid)
	assert.Equal(t, "bob", got.Winner)

	// Reapplying the same event is harmless.
	require.NoError(t, store.SetHighBid(ctx, "a1", "bob", 100))
	got, _ = store.Get(ctx, "a1")
	assert.Equal(t, "bob", got.Winner)
}

func TestUpsertPreservesHighBid(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, auctionAt("a1", now)))
	require.NoError(t, store.SetHighBid(ctx, "a1", "bob", 100))

	// A later lifecycle update carries no high bid; the replica keeps it.
	updated := auctionAt("a1", now.Add(time.Second))
	updated.Color = "red"
	require.NoError(t, store.Upsert(ctx, updated))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "red", got.Color)
	assert.Equal(t, int64(100), got.CurrentHighBid)
	assert.Equal(t, "bob", got.Winner)
}

func TestListOrderedByAuctionEnd(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	late := auctionAt("late", now)
	late.AuctionEnd = now.Add(48 * time.Hour)
	early := auctionAt("early", now)
	early.AuctionEnd = now.Add(1 * time.Hour)

	require.NoError(t, store.Upsert(ctx, late))
	require.NoError(t, store.Upsert(ctx, early))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)
}

func TestFromCreatedCarriesEventTimestamp(t *testing.T) {
	ts := time.Now().UTC()
	e := events.AuctionCreated{
		Version:      events.CurrentVersion,
		AuctionID:    "a1",
		Seller:       "alice",
		ReservePrice: 75,
		AuctionEnd:   ts.Add(time.Hour),
		Timestamp:    ts,
	}

	auction := FromCreated(e)
	assert.Equal(t, "a1", auction.ID)
	assert.Equal(t, int64(75), auction.ReservePrice)
	assert.True(t, auction.UpdatedAt.Equal(ts))
}
