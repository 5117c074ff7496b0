// Package resolver answers "give me this auction" from the local replica
// store, falling back to a synchronous fetch from the authoritative
// service when the replica has not caught up yet. A fetched auction is
// written back into the store so the next lookup is local.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/VictorYakushenko/Carsties/internal/auctions"
	"github.com/VictorYakushenko/Carsties/internal/replica"
	"github.com/VictorYakushenko/Carsties/internal/retry"
)

// Resolver resolves auction identifiers replica-first.
type Resolver struct {
	store  replica.Store
	client auctions.Client
	policy retry.RemoteFetchPolicy
	now    func() time.Time
	logger *slog.Logger
}

// New creates a resolver over the given store and authoritative client.
func New(store replica.Store, client auctions.Client, policy retry.RemoteFetchPolicy, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		client: client,
		policy: policy,
		now:    time.Now,
		logger: logger,
	}
}

// Resolve returns the auction from the local store if present, otherwise
// fetches it from the authoritative service under the remote-fetch
// policy. Not-found responses are retried too: a bid can legitimately
// arrive before the replica, or even the authoritative record, is
// visible. After the policy's budget elapses the caller gets
// replica.ErrNotFound, never a raw transport error; "does not exist" and
// "unreachable" degrade identically by design.
func (r *Resolver) Resolve(ctx context.Context, id string) (*replica.Auction, error) {
	auction, err := r.store.Get(ctx, id)
	if err == nil {
		return auction, nil
	}
	if !errors.Is(err, replica.ErrNotFound) {
		return nil, err
	}

	var fetched *replica.Auction
	op := func() error {
		remote, fetchErr := r.client.GetAuction(ctx, id)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return retry.Permanent(fetchErr)
			}
			return fetchErr
		}
		fetched = remote
		return nil
	}

	if err := retry.Do(op, r.policy.Backoff(ctx)); err != nil {
		r.logger.Warn("auction resolution exhausted retries", "auction_id", id, "error", err)
		return nil, replica.ErrNotFound
	}

	// Backfill as a trusted upsert stamped with the current time, the
	// same shape an AuctionCreated event would have produced.
	fetched.UpdatedAt = r.now()
	if err := r.store.Upsert(ctx, fetched); err != nil {
		r.logger.Warn("failed to backfill replica", "auction_id", id, "error", err)
	}

	r.logger.Info("auction resolved via remote fetch", "auction_id", id)
	return fetched, nil
}
