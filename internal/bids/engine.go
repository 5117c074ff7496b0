package bids

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VictorYakushenko/Carsties/internal/replica"
	"github.com/VictorYakushenko/Carsties/pkg/events"
)

// lockStripes bounds the number of per-auction mutexes. Two auctions may
// share a stripe and serialize needlessly, but one auction never spans
// two stripes.
const lockStripes = 64

// AuctionResolver resolves an auction identifier to its record,
// replica-first with remote fallback.
type AuctionResolver interface {
	Resolve(ctx context.Context, id string) (*replica.Auction, error)
}

// Publisher publishes a BidPlaced event to the broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// Feed pushes a BidPlaced event to the live feed. Optional.
type Feed interface {
	PublishBid(ctx context.Context, event events.BidPlaced) error
}

// Engine evaluates and records bids. Evaluation for one auction is
// strictly serialized: the read of the current high bid and the insert of
// the new bid happen under the auction's lock, so two concurrent bids can
// never both observe the same high bid and both be accepted. Bids on
// different auctions proceed in parallel. The lock is released before the
// event publish.
type Engine struct {
	resolver  AuctionResolver
	store     Store
	publisher Publisher
	feed      Feed
	locks     [lockStripes]sync.Mutex
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine creates an engine. feed may be nil.
func NewEngine(resolver AuctionResolver, store Store, publisher Publisher, feed Feed, logger *slog.Logger) *Engine {
	return &Engine{
		resolver:  resolver,
		store:     store,
		publisher: publisher,
		feed:      feed,
		now:       time.Now,
		logger:    logger,
	}
}

func (e *Engine) lockFor(auctionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(auctionID))
	return &e.locks[h.Sum32()%lockStripes]
}

// PlaceBid runs one bid through the acceptance rules and records the
// outcome. It returns ErrAuctionNotFound when resolution fails and
// ErrSelfBid when the bidder is the seller; neither persists a bid. Every
// other outcome persists the bid with its status and publishes BidPlaced.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, bidder string, amount int64) (*Bid, error) {
	auction, err := e.resolver.Resolve(ctx, auctionID)
	if err != nil {
		return nil, ErrAuctionNotFound
	}

	if auction.Seller == bidder {
		return nil, ErrSelfBid
	}

	bid, err := e.evaluateAndStore(ctx, auction, bidder, amount)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, bid)
	return bid, nil
}

// evaluateAndStore holds the per-auction lock across the high-bid read
// and the insert, and nothing else.
func (e *Engine) evaluateAndStore(ctx context.Context, auction *replica.Auction, bidder string, amount int64) (*Bid, error) {
	lock := e.lockFor(auction.ID)
	lock.Lock()
	defer lock.Unlock()

	now := e.now().UTC()
	bid := &Bid{
		ID:        uuid.New().String(),
		AuctionID: auction.ID,
		Bidder:    bidder,
		Amount:    amount,
		BidTime:   now,
	}

	if auction.Ended(now) {
		bid.Status = StatusFinished
	} else {
		highest, err := e.store.Highest(ctx, auction.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read highest bid: %w", err)
		}

		switch {
		case highest == nil || amount > highest.Amount:
			if amount > auction.ReservePrice {
				bid.Status = StatusAccepted
			} else {
				bid.Status = StatusAcceptedBelowReserve
			}
		default:
			bid.Status = StatusTooLow
		}
	}

	if err := e.store.Insert(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to store bid: %w", err)
	}
	return bid, nil
}

func (e *Engine) publish(ctx context.Context, bid *Bid) {
	event := events.BidPlaced{
		Version:   events.CurrentVersion,
		BidID:     bid.ID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
		Status:    string(bid.Status),
		Timestamp: bid.BidTime,
	}

	if err := e.publisher.Publish(ctx, events.BidPlacedSubject(bid.AuctionID), event); err != nil {
		e.logger.Error("failed to publish BidPlaced", "bid_id", bid.ID, "error", err)
	}

	if e.feed != nil {
		if err := e.feed.PublishBid(ctx, event); err != nil {
			e.logger.Warn("failed to push bid to live feed", "bid_id", bid.ID, "error", err)
		}
	}

	e.logger.Info("bid placed",
		"bid_id", bid.ID, "auction_id", bid.AuctionID,
		"bidder", bid.Bidder, "amount", bid.Amount, "status", bid.Status)
}

// ListBids returns an auction's bids, most recent first.
func (e *Engine) ListBids(ctx context.Context, auctionID string) ([]*Bid, error) {
	return e.store.ByAuction(ctx, auctionID)
}
