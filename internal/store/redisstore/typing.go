package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"teamline/internal/domain"
)

// TypingStore keeps typing presence in a per-channel sorted set scored by
// the write timestamp. Readers select members newer than the staleness
// bound, so the TTL-at-read contract is identical to the relational
// implementation; the key-level expiry only garbage-collects dead
// channels.
type TypingStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to redis and verifies the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*TypingStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", domain.ErrStoreUnavailable)
	}
	return &TypingStore{client: client, ttl: ttl}, nil
}

func (s *TypingStore) Close() error {
	return s.client.Close()
}

var _ domain.TypingRepository = (*TypingStore)(nil)

func typingKey(channelID int64) string {
	return fmt.Sprintf("typing:%d", channelID)
}

func (s *TypingStore) Set(ctx context.Context, channelID, userID int64, isTyping bool, at time.Time) error {
	key := typingKey(channelID)
	member := strconv.FormatInt(userID, 10)

	if !isTyping {
		if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
			return fmt.Errorf("clear typing: %w", err)
		}
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: member})
	// Refresh the key expiry so abandoned channels clean themselves up;
	// 10x TTL keeps the window comfortably wider than any read bound.
	pipe.Expire(ctx, key, 10*s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

func (s *TypingStore) ListActive(ctx context.Context, channelID int64, since time.Time) ([]int64, error) {
	key := typingKey(channelID)
	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("(%d", since.UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}

	// Drop stale members opportunistically while we are here.
	_ = s.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", since.UnixMilli())).Err()

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
