// Package bids owns bid records and the acceptance decision: given an
// auction, its reserve price and the current high bid, what status does a
// new bid get. A status is computed once, at placement time, and never
// revised.
package bids

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status is the terminal outcome assigned to a bid at evaluation time.
type Status string

const (
	// StatusAccepted: the bid beats both the current high bid and the
	// reserve price.
	StatusAccepted Status = "Accepted"
	// StatusAcceptedBelowReserve: highest so far, but not strictly above
	// the reserve price.
	StatusAcceptedBelowReserve Status = "AcceptedBelowReserve"
	// StatusTooLow: does not beat the current high bid. Recorded for
	// history but never the winner.
	StatusTooLow Status = "TooLow"
	// StatusFinished: placed after the auction ended. Recorded for audit
	// only.
	StatusFinished Status = "Finished"
)

// IsAccepted reports whether the bid became the new high bid.
func (s Status) IsAccepted() bool {
	return strings.Contains(string(s), "Accepted")
}

// Business-rule errors. These abort placement before any bid is
// persisted.
var (
	ErrAuctionNotFound = errors.New("cannot accept bids on this auction at this time")
	ErrSelfBid         = errors.New("cannot bid on your own auction")
)

// Bid is a single placement attempt. Immutable once stored.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	Bidder    string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	BidTime   time.Time `json:"bid_time"`
	Status    Status    `json:"status"`
}

// Store is a durable keyed collection of bids. Highest must order by
// amount descending with ties broken by earliest bid time, and returns
// nil when the auction has no bids yet.
type Store interface {
	Insert(ctx context.Context, bid *Bid) error
	Highest(ctx context.Context, auctionID string) (*Bid, error)
	ByAuction(ctx context.Context, auctionID string) ([]*Bid, error)
}
