package replica

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VictorYakushenko/Carsties/internal/retry"
)

// Lister is the slice of the auction-service client that reconciliation
// needs: the bulk fetch and nothing else.
type Lister interface {
	ListAuctions(ctx context.Context) ([]*Auction, error)
}

// Reconcile bulk-loads every auction known to the authoritative service
// into the store. It runs at startup to close the gap left by events
// missed while the service was down. Upsert's timestamp rule makes the
// merge safe against events consumed concurrently: whichever side carries
// the newer timestamp wins.
//
// A failed bulk fetch is retried per the policy; on exhaustion the
// service keeps running with a possibly incomplete store, relying on the
// resolver's fallback to cover gaps.
func Reconcile(ctx context.Context, client Lister, store Store, policy retry.ReconcilePolicy, logger *slog.Logger) error {
	var fetched []*Auction

	op := func() error {
		listed, err := client.ListAuctions(ctx)
		if err != nil {
			logger.Warn("bulk auction fetch failed, will retry", "error", err)
			return err
		}
		fetched = listed
		return nil
	}

	if err := retry.Do(op, policy.Backoff(ctx)); err != nil {
		logger.Error("reconciliation gave up, replica store may be incomplete", "error", err)
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	for _, auction := range fetched {
		if err := store.Upsert(ctx, auction); err != nil {
			return fmt.Errorf("failed to store auction %s: %w", auction.ID, err)
		}
	}

	logger.Info("replica store reconciled", "auctions", len(fetched))
	return nil
}
