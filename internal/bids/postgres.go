package bids

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is the durable bid store used in production.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and verifies connectivity.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// InitSchema creates the bids table and its access-path indexes.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bids (
		id VARCHAR(255) PRIMARY KEY,
		auction_id VARCHAR(255) NOT NULL,
		bidder VARCHAR(255) NOT NULL,
		amount BIGINT NOT NULL,
		bid_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(50) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bids_auction_amount
		ON bids(auction_id, amount DESC, bid_time ASC);
	CREATE INDEX IF NOT EXISTS idx_bids_auction_time
		ON bids(auction_id, bid_time DESC);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert stores a bid exactly once; a redelivered insert with the same id
// is a no-op.
func (s *PostgresStore) Insert(ctx context.Context, bid *Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, bidder, amount, bid_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.Bidder, bid.Amount, bid.BidTime, string(bid.Status))
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// Highest returns the auction's top bid by amount, earliest-first on
// ties, or nil when there are no bids.
func (s *PostgresStore) Highest(ctx context.Context, auctionID string) (*Bid, error) {
	query := `
		SELECT id, auction_id, bidder, amount, bid_time, status
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, bid_time ASC
		LIMIT 1
	`

	bid := &Bid{}
	err := s.db.QueryRowContext(ctx, query, auctionID).Scan(
		&bid.ID, &bid.AuctionID, &bid.Bidder, &bid.Amount, &bid.BidTime, &bid.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query highest bid: %w", err)
	}
	return bid, nil
}

// ByAuction returns the auction's bids, most recent first.
func (s *PostgresStore) ByAuction(ctx context.Context, auctionID string) ([]*Bid, error) {
	query := `
		SELECT id, auction_id, bidder, amount, bid_time, status
		FROM bids
		WHERE auction_id = $1
		ORDER BY bid_time DESC
	`

	rows, err := s.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*Bid
	for rows.Next() {
		bid := &Bid{}
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.Bidder, &bid.Amount, &bid.BidTime, &bid.Status); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, bid)
	}
	return result, rows.Err()
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
