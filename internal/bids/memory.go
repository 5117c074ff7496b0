package bids

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process bid store for tests and single-node runs.
type MemoryStore struct {
	mu   sync.RWMutex
	bids map[string][]*Bid // auctionID -> bids in insertion order
}

// NewMemoryStore creates an empty in-memory bid store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bids: make(map[string][]*Bid)}
}

// Insert stores the bid.
func (s *MemoryStore) Insert(ctx context.Context, bid *Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *bid
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], &copied)
	return nil
}

// Highest returns the bid with the greatest amount, earliest-first on
// ties, or nil when the auction has no bids.
func (s *MemoryStore) Highest(ctx context.Context, auctionID string) (*Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highest *Bid
	for _, bid := range s.bids[auctionID] {
		if highest == nil ||
			bid.Amount > highest.Amount ||
			(bid.Amount == highest.Amount && bid.BidTime.Before(highest.BidTime)) {
			highest = bid
		}
	}
	if highest == nil {
		return nil, nil
	}
	copied := *highest
	return &copied, nil
}

// ByAuction returns the auction's bids, most recent first.
func (s *MemoryStore) ByAuction(ctx context.Context, auctionID string) ([]*Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.bids[auctionID]
	result := make([]*Bid, 0, len(stored))
	for _, bid := range stored {
		copied := *bid
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BidTime.After(result[j].BidTime)
	})
	return result, nil
}
