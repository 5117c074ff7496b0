package replica

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It backs tests and single-node
// deployments; services sharing a replica across processes use the Redis
// store instead.
type MemoryStore struct {
	mu         sync.RWMutex
	auctions   map[string]*Auction
	tombstones map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions:   make(map[string]*Auction),
		tombstones: make(map[string]time.Time),
	}
}

// Upsert inserts or replaces the replica unless the stored record (or a
// tombstone) carries a newer timestamp.
func (s *MemoryStore) Upsert(ctx context.Context, auction *Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deleted, ok := s.tombstones[auction.ID]; ok {
		if deleted.After(auction.UpdatedAt) {
			return nil
		}
		delete(s.tombstones, auction.ID)
	}

	existing, ok := s.auctions[auction.ID]
	if ok && existing.UpdatedAt.After(auction.UpdatedAt) {
		return nil
	}

	stored := *auction
	if ok && stored.CurrentHighBid == 0 {
		// Lifecycle events don't carry the high bid; keep what the
		// BidPlaced consumer has accumulated.
		stored.CurrentHighBid = existing.CurrentHighBid
		stored.Winner = existing.Winner
	}
	s.auctions[auction.ID] = &stored
	return nil
}

// Delete tombstones the replica so stale lifecycle events cannot
// resurrect it.
func (s *MemoryStore) Delete(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.auctions[id]; ok && existing.UpdatedAt.After(at) {
		return nil
	}
	delete(s.auctions, id)
	s.tombstones[id] = at
	return nil
}

// Get returns the replica or ErrNotFound. Tombstoned auctions read as
// absent.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *auction
	return &copied, nil
}

// List returns all live replicas ordered by auction end time.
func (s *MemoryStore) List(ctx context.Context) ([]*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]*Auction, 0, len(s.auctions))
	for _, auction := range s.auctions {
		copied := *auction
		auctions = append(auctions, &copied)
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].AuctionEnd.Before(auctions[j].AuctionEnd)
	})
	return auctions, nil
}

// SetHighBid raises the replica's current high bid; lower or equal
// amounts are ignored, which keeps reapplied BidPlaced events harmless.
func (s *MemoryStore) SetHighBid(ctx context.Context, auctionID, bidder string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil
	}
	if amount > auction.CurrentHighBid {
		auction.CurrentHighBid = amount
		auction.Winner = bidder
	}
	return nil
}
