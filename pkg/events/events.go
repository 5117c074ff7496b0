// Package events defines the message contracts shared by every service:
// the auction lifecycle events published by the auction service and the
// BidPlaced event published by the bidding service. Each event is a closed,
// versioned JSON payload; consumers reject versions they do not understand
// instead of guessing at fields.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentVersion is the schema version stamped on every published event.
const CurrentVersion = 1

// NATS subjects. Auction lifecycle events share one stream so a consumer
// sees creates, updates and deletes for the same auction in publish order.
const (
	SubjectAuctionCreated = "auctions.created"
	SubjectAuctionUpdated = "auctions.updated"
	SubjectAuctionDeleted = "auctions.deleted"
	SubjectBidPlaced      = "bids.placed"
	SubjectDeadLetter     = "auctions.deadletter"

	AuctionStream = "AUCTION_EVENTS"
	BidStream     = "BID_EVENTS"
)

// BidPlacedSubject returns the per-auction subject for a BidPlaced event,
// e.g. "bids.placed.3f2a...". Keying by auction identifier lets consumers
// filter a single auction's feed.
func BidPlacedSubject(auctionID string) string {
	return fmt.Sprintf("%s.%s", SubjectBidPlaced, auctionID)
}

// AuctionCreated announces a newly created auction. It carries the full
// replica payload so consumers never need a follow-up query.
type AuctionCreated struct {
	Version      int       `json:"version"`
	AuctionID    string    `json:"auction_id"`
	Seller       string    `json:"seller"`
	ReservePrice int64     `json:"reserve_price"`
	AuctionEnd   time.Time `json:"auction_end"`
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	Color        string    `json:"color,omitempty"`
	Mileage      int       `json:"mileage,omitempty"`
	Year         int       `json:"year,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// AuctionUpdated carries the same payload as AuctionCreated; replicas treat
// both as an upsert, so a consumer that missed the create still converges.
type AuctionUpdated struct {
	Version      int       `json:"version"`
	AuctionID    string    `json:"auction_id"`
	Seller       string    `json:"seller"`
	ReservePrice int64     `json:"reserve_price"`
	AuctionEnd   time.Time `json:"auction_end"`
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	Color        string    `json:"color,omitempty"`
	Mileage      int       `json:"mileage,omitempty"`
	Year         int       `json:"year,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// AuctionDeleted removes an auction from every replica.
type AuctionDeleted struct {
	Version   int       `json:"version"`
	AuctionID string    `json:"auction_id"`
	Timestamp time.Time `json:"timestamp"`
}

// BidPlaced reports a bid and the status it was assigned at evaluation
// time. The status never changes after publication.
type BidPlaced struct {
	Version   int       `json:"version"`
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	Bidder    string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// DeadLetter wraps a payload that repeatedly failed to apply, together
// with enough context to triage it by hand.
type DeadLetter struct {
	Subject  string          `json:"subject"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	Payload  json.RawMessage `json:"payload"`
	FailedAt time.Time       `json:"failed_at"`
	Consumer string          `json:"consumer"`
}

// UnsupportedVersionError is returned when an event's schema version is not
// one this binary knows how to apply. Consumers route these to the
// dead-letter path rather than dropping them.
type UnsupportedVersionError struct {
	Subject string
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("events: unsupported version %d on %s", e.Version, e.Subject)
}

// Encode marshals an event to its wire form.
func Encode(event any) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// envelope is the minimal shape decoded before dispatching on version.
type envelope struct {
	Version int `json:"version"`
}

// Decode unmarshals data into out after checking the embedded schema
// version. subject is only used for error reporting.
func Decode(subject string, data []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if env.Version != CurrentVersion {
		return &UnsupportedVersionError{Subject: subject, Version: env.Version}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return nil
}
