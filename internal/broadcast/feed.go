// Package broadcast pushes BidPlaced events to websocket clients watching
// an auction. The bidding service publishes each bid to a per-auction
// Redis Pub/Sub channel; the search service subscribes and fans out to
// its websocket connections.
package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/VictorYakushenko/Carsties/pkg/events"
)

const channelPrefix = "bid_feed:"

// FeedChannel returns the Pub/Sub channel for one auction's bid feed.
func FeedChannel(auctionID string) string {
	return channelPrefix + auctionID
}

// Feed publishes bid events to Redis Pub/Sub. Delivery is fire-and-forget;
// the durable record travels over JetStream.
type Feed struct {
	client *redis.Client
}

// NewFeed creates a feed publisher over an existing Redis client.
func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

// PublishBid pushes the event to the auction's feed channel.
func (f *Feed) PublishBid(ctx context.Context, event events.BidPlaced) error {
	data, err := events.Encode(event)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, FeedChannel(event.AuctionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish bid feed message: %w", err)
	}
	return nil
}
