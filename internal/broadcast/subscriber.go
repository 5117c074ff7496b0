package broadcast

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Message is one bid-feed payload with the auction it belongs to.
type Message struct {
	AuctionID string
	Payload   []byte
}

// Subscriber listens on the bid-feed Pub/Sub channels and forwards
// payloads to the websocket manager.
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
	logger *slog.Logger
}

// NewSubscriber creates a subscriber over an existing Redis client.
func NewSubscriber(client *redis.Client, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: client, logger: logger}
}

// Listen subscribes to every auction's feed channel and sends messages to
// out until ctx is cancelled. Blocking; run in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, out chan<- *Message) error {
	s.pubsub = s.client.PSubscribe(ctx, channelPrefix+"*")
	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			auctionID := strings.TrimPrefix(msg.Channel, channelPrefix)
			if auctionID == msg.Channel {
				s.logger.Warn("unexpected feed channel", "channel", msg.Channel)
				continue
			}
			out <- &Message{AuctionID: auctionID, Payload: []byte(msg.Payload)}
		}
	}
}

// Close closes the subscription.
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
