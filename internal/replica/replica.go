// Package replica maintains a local, eventually-consistent copy of the
// auction data owned by the authoritative auction service. Replicas are
// mutated only by applying broker events (last-write-wins by embedded
// timestamp) or by the resolver backfilling a fetched record; they are
// never edited directly.
package replica

import (
	"context"
	"errors"
	"time"

	"github.com/VictorYakushenko/Carsties/pkg/events"
)

// ErrNotFound is returned when an auction is absent from the store or has
// been tombstoned by a delete event.
var ErrNotFound = errors.New("auction not found")

// Auction is the replicated view of an auction. UpdatedAt is the embedded
// timestamp of the most recently applied event and drives the
// last-write-wins rule.
type Auction struct {
	ID             string    `json:"id"`
	Seller         string    `json:"seller"`
	ReservePrice   int64     `json:"reserve_price"`
	AuctionEnd     time.Time `json:"auction_end"`
	CurrentHighBid int64     `json:"current_high_bid"`
	Winner         string    `json:"winner,omitempty"`
	Make           string    `json:"make,omitempty"`
	Model          string    `json:"model,omitempty"`
	Color          string    `json:"color,omitempty"`
	Mileage        int       `json:"mileage,omitempty"`
	Year           int       `json:"year,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ended reports whether the auction has passed its end time.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.AuctionEnd)
}

// Store is a durable keyed collection of auction replicas. Upsert and
// Delete enforce last-write-wins: an operation carrying a timestamp older
// than the stored one is a no-op, which makes event application idempotent
// and safe under out-of-order delivery. Get never blocks on network
// fallback; that is the resolver's job.
type Store interface {
	Upsert(ctx context.Context, auction *Auction) error
	Delete(ctx context.Context, id string, at time.Time) error
	Get(ctx context.Context, id string) (*Auction, error)
	List(ctx context.Context) ([]*Auction, error)

	// SetHighBid records a new winning bid on the replica if amount
	// exceeds the stored high bid. Used by BidPlaced consumers.
	SetHighBid(ctx context.Context, auctionID, bidder string, amount int64) error
}

// FromCreated converts an AuctionCreated event to a replica record.
func FromCreated(e events.AuctionCreated) *Auction {
	return &Auction{
		ID:           e.AuctionID,
		Seller:       e.Seller,
		ReservePrice: e.ReservePrice,
		AuctionEnd:   e.AuctionEnd,
		Make:         e.Make,
		Model:        e.Model,
		Color:        e.Color,
		Mileage:      e.Mileage,
		Year:         e.Year,
		UpdatedAt:    e.Timestamp,
	}
}

// FromUpdated converts an AuctionUpdated event to a replica record.
func FromUpdated(e events.AuctionUpdated) *Auction {
	return &Auction{
		ID:           e.AuctionID,
		Seller:       e.Seller,
		ReservePrice: e.ReservePrice,
		AuctionEnd:   e.AuctionEnd,
		Make:         e.Make,
		Model:        e.Model,
		Color:        e.Color,
		Mileage:      e.Mileage,
		Year:         e.Year,
		UpdatedAt:    e.Timestamp,
	}
}
