// Package broker wraps the NATS JetStream connection shared by the
// services: stream provisioning, event publishing and the dead-letter
// path for events that repeatedly fail to apply.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/VictorYakushenko/Carsties/pkg/events"
)

// Publisher publishes events to JetStream. Publish waits for the server
// ack, so a nil return means the message is persisted on the stream.
type Publisher struct {
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewPublisher creates a JetStream context over conn and ensures the
// auction and bid streams exist.
func NewPublisher(conn *nats.Conn, logger *slog.Logger) (*Publisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	streams := []jetstream.StreamConfig{
		{
			Name:        events.AuctionStream,
			Description: "Auction lifecycle events and dead letters",
			Subjects:    []string{"auctions.*"},
			Storage:     jetstream.FileStorage,
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			Replicas:    1,
		},
		{
			Name:        events.BidStream,
			Description: "BidPlaced events",
			Subjects:    []string{"bids.placed.*"},
			Storage:     jetstream.FileStorage,
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			Replicas:    1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{js: js, logger: logger}, nil
}

// JetStream exposes the underlying JetStream context for consumers.
func (p *Publisher) JetStream() jetstream.JetStream {
	return p.js
}

// Publish encodes event and publishes it to subject, waiting for the
// stream ack.
func (p *Publisher) Publish(ctx context.Context, subject string, event any) error {
	data, err := events.Encode(event)
	if err != nil {
		return err
	}

	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("published event", "subject", subject, "seq", ack.Sequence)
	return nil
}

// DeadLetter routes an unapplicable event to the dead-letter subject so
// an operator can inspect it. This is an operational alert, never a
// silent drop.
func (p *Publisher) DeadLetter(ctx context.Context, dl events.DeadLetter) error {
	if err := p.Publish(ctx, events.SubjectDeadLetter, dl); err != nil {
		return err
	}
	p.logger.Error("event dead-lettered",
		"subject", dl.Subject, "reason", dl.Reason, "attempts", dl.Attempts)
	return nil
}
