package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. The last-write-wins check runs
// inside Lua scripts so concurrent consumers racing on the same auction
// cannot interleave between the timestamp compare and the write.
type RedisStore struct {
	client        *redis.Client
	upsertScript  *redis.Script
	deleteScript  *redis.Script
	highBidScript *redis.Script
}

// NewRedisStore creates a Redis-backed store and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// KEYS[1]: auction:{id}          (JSON payload)
	// KEYS[2]: auction:{id}:ts       (last applied event timestamp, unix nanos)
	// KEYS[3]: auction:{id}:deleted  (tombstone marker)
	// KEYS[4]: auctions              (index of live auction ids)
	// ARGV[1]: payload  ARGV[2]: timestamp  ARGV[3]: auction id
	upsertScript := redis.NewScript(`
		local stored = tonumber(redis.call('GET', KEYS[2]) or '0')
		local incoming = tonumber(ARGV[2])

		if incoming < stored then
			return 0
		end

		redis.call('SET', KEYS[1], ARGV[1])
		redis.call('SET', KEYS[2], ARGV[2])
		redis.call('DEL', KEYS[3])
		redis.call('SADD', KEYS[4], ARGV[3])
		return 1
	`)

	deleteScript := redis.NewScript(`
		local stored = tonumber(redis.call('GET', KEYS[2]) or '0')
		local incoming = tonumber(ARGV[1])

		if incoming < stored then
			return 0
		end

		redis.call('DEL', KEYS[1])
		redis.call('SET', KEYS[2], ARGV[1])
		redis.call('SET', KEYS[3], '1')
		redis.call('SREM', KEYS[4], ARGV[2])
		return 1
	`)

	// Raises current_high_bid/winner in place; a lower or equal amount is
	// a no-op so redelivered BidPlaced events are harmless.
	highBidScript := redis.NewScript(`
		local raw = redis.call('GET', KEYS[1])
		if not raw then
			return 0
		end

		local auction = cjson.decode(raw)
		local amount = tonumber(ARGV[1])
		local current = tonumber(auction['current_high_bid']) or 0

		if amount <= current then
			return 0
		end

		auction['current_high_bid'] = amount
		auction['winner'] = ARGV[2]
		redis.call('SET', KEYS[1], cjson.encode(auction))
		return 1
	`)

	return &RedisStore{
		client:        rdb,
		upsertScript:  upsertScript,
		deleteScript:  deleteScript,
		highBidScript: highBidScript,
	}, nil
}

func auctionKeys(id string) []string {
	return []string{
		fmt.Sprintf("auction:%s", id),
		fmt.Sprintf("auction:%s:ts", id),
		fmt.Sprintf("auction:%s:deleted", id),
		"auctions",
	}
}

// Upsert applies the replica under the server-side timestamp check. To
// preserve the high bid accumulated by the BidPlaced consumer, it merges
// the stored winner fields into lifecycle payloads that lack them.
func (s *RedisStore) Upsert(ctx context.Context, auction *Auction) error {
	stored := *auction
	if stored.CurrentHighBid == 0 {
		if existing, err := s.Get(ctx, auction.ID); err == nil {
			stored.CurrentHighBid = existing.CurrentHighBid
			stored.Winner = existing.Winner
		}
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal auction: %w", err)
	}

	err = s.upsertScript.Run(ctx, s.client, auctionKeys(auction.ID),
		payload, auction.UpdatedAt.UnixNano(), auction.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to upsert auction %s: %w", auction.ID, err)
	}
	return nil
}

// Delete tombstones the auction unless a newer event has already been
// applied.
func (s *RedisStore) Delete(ctx context.Context, id string, at time.Time) error {
	err := s.deleteScript.Run(ctx, s.client, auctionKeys(id), at.UnixNano(), id).Err()
	if err != nil {
		return fmt.Errorf("failed to delete auction %s: %w", id, err)
	}
	return nil
}

// Get returns the replica or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Auction, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf("auction:%s", id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction %s: %w", id, err)
	}

	var auction Auction
	if err := json.Unmarshal(raw, &auction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auction %s: %w", id, err)
	}
	return &auction, nil
}

// List returns all live replicas.
func (s *RedisStore) List(ctx context.Context) ([]*Auction, error) {
	ids, err := s.client.SMembers(ctx, "auctions").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}

	auctions := make([]*Auction, 0, len(ids))
	for _, id := range ids {
		auction, err := s.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, nil
}

// SetHighBid raises the replica's current high bid atomically.
func (s *RedisStore) SetHighBid(ctx context.Context, auctionID, bidder string, amount int64) error {
	err := s.highBidScript.Run(ctx, s.client,
		[]string{fmt.Sprintf("auction:%s", auctionID)}, amount, bidder).Err()
	if err != nil {
		return fmt.Errorf("failed to update high bid for %s: %w", auctionID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
