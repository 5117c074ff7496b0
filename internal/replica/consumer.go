package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/VictorYakushenko/Carsties/internal/retry"
	"github.com/VictorYakushenko/Carsties/pkg/events"
)

// DeadLetterer routes events that exhausted the delivery policy to a
// holding area for manual inspection.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, dl events.DeadLetter) error
}

// Consumer subscribes to broker events and applies them to the local
// store. Delivery is at-least-once; Apply is idempotent, so redelivered
// events are harmless. An event whose application keeps failing is
// retried per the delivery policy and then dead-lettered.
type Consumer struct {
	js     jetstream.JetStream
	store  Store
	dlq    DeadLetterer
	policy retry.DeliveryPolicy
	name   string
	logger *slog.Logger

	subs []jetstream.ConsumeContext
}

// NewConsumer creates a consumer named name (used as the durable consumer
// prefix, one per service).
func NewConsumer(js jetstream.JetStream, store Store, dlq DeadLetterer, policy retry.DeliveryPolicy, name string, logger *slog.Logger) *Consumer {
	return &Consumer{
		js:     js,
		store:  store,
		dlq:    dlq,
		policy: policy,
		name:   name,
		logger: logger,
	}
}

// Start begins consuming auction lifecycle events, and BidPlaced events
// as well when withBids is set (the search read model tracks the current
// high bid; the bidding service derives it from its own bid store).
func (c *Consumer) Start(ctx context.Context, withBids bool) error {
	subjects := []string{
		events.SubjectAuctionCreated,
		events.SubjectAuctionUpdated,
		events.SubjectAuctionDeleted,
	}
	if err := c.consumeStream(ctx, events.AuctionStream, "auctions", subjects); err != nil {
		return err
	}

	if withBids {
		bidSubjects := []string{events.SubjectBidPlaced + ".>"}
		if err := c.consumeStream(ctx, events.BidStream, "bids", bidSubjects); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) consumeStream(ctx context.Context, stream, suffix string, subjects []string) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:        fmt.Sprintf("%s-%s", c.name, suffix),
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer on %s: %w", stream, err)
	}

	sub, err := cons.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", stream, err)
	}

	c.subs = append(c.subs, sub)
	c.logger.Info("consuming events", "stream", stream, "subjects", subjects)
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	err := c.deliver(ctx, msg.Subject(), msg.Data())
	if err == nil {
		msg.Ack()
		return
	}

	dl := events.DeadLetter{
		Subject:  msg.Subject(),
		Reason:   err.Error(),
		Attempts: c.policy.MaxAttempts,
		Payload:  msg.Data(),
		FailedAt: time.Now().UTC(),
		Consumer: c.name,
	}
	if dlErr := c.dlq.DeadLetter(ctx, dl); dlErr != nil {
		// Couldn't even reach the dead-letter path; let the broker
		// redeliver the original message.
		c.logger.Error("dead-letter publish failed", "subject", msg.Subject(), "error", dlErr)
		msg.Nak()
		return
	}
	msg.Term()
}

// deliver applies one event under the delivery policy. The returned error
// is non-nil only after the policy is exhausted or the event is
// permanently unapplicable.
func (c *Consumer) deliver(ctx context.Context, subject string, data []byte) error {
	op := func() error {
		err := c.apply(ctx, subject, data)
		var unsupported *events.UnsupportedVersionError
		if errors.As(err, &unsupported) {
			return retry.Permanent(err)
		}
		if err != nil {
			c.logger.Warn("event apply failed, will retry", "subject", subject, "error", err)
		}
		return err
	}
	return retry.Do(op, c.policy.Backoff(ctx))
}

// apply dispatches a single event to the store.
func (c *Consumer) apply(ctx context.Context, subject string, data []byte) error {
	switch {
	case subject == events.SubjectAuctionCreated:
		var e events.AuctionCreated
		if err := events.Decode(subject, data, &e); err != nil {
			return err
		}
		return c.store.Upsert(ctx, FromCreated(e))

	case subject == events.SubjectAuctionUpdated:
		var e events.AuctionUpdated
		if err := events.Decode(subject, data, &e); err != nil {
			return err
		}
		return c.store.Upsert(ctx, FromUpdated(e))

	case subject == events.SubjectAuctionDeleted:
		var e events.AuctionDeleted
		if err := events.Decode(subject, data, &e); err != nil {
			return err
		}
		return c.store.Delete(ctx, e.AuctionID, e.Timestamp)

	case strings.HasPrefix(subject, events.SubjectBidPlaced+"."):
		var e events.BidPlaced
		if err := events.Decode(subject, data, &e); err != nil {
			return err
		}
		if !strings.Contains(e.Status, "Accepted") {
			return nil
		}
		return c.store.SetHighBid(ctx, e.AuctionID, e.Bidder, e.Amount)

	default:
		return retry.Permanent(fmt.Errorf("no handler for subject %s", subject))
	}
}

// Stop drains the subscriptions.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		sub.Stop()
	}
}
