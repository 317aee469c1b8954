package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis so the guard survives restarts and can
// be shared by replicas. Failures live in a sorted set scored by timestamp;
// bans are plain keys with their own TTL.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func failuresKey(key string) string { return "guard:failures:" + key }
func banKey(key string) string      { return "guard:ban:" + key }

func (s *RedisStore) AddFailure(ctx context.Context, key string, at time.Time, window time.Duration) (int, error) {
	fk := failuresKey(key)
	cutoff := at.Add(-window).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fk, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, fk, redis.Z{Score: float64(at.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, fk)
	pipe.Expire(ctx, fk, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record failure in redis: %w", err)
	}
	return int(card.Val()), nil
}

func (s *RedisStore) FailureCount(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	fk := failuresKey(key)
	cutoff := now.Add(-window).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fk, "-inf", fmt.Sprintf("%d", cutoff))
	card := pipe.ZCard(ctx, fk)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count failures in redis: %w", err)
	}
	return int(card.Val()), nil
}

func (s *RedisStore) Ban(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, banKey(key), until.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("set ban in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) BannedUntil(ctx context.Context, key string, now time.Time) (*time.Time, error) {
	val, err := s.client.Get(ctx, banKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ban from redis: %w", err)
	}
	until, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("parse ban timestamp: %w", err)
	}
	if !now.Before(until) {
		return nil, nil
	}
	return &until, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, failuresKey(key), banKey(key)).Err(); err != nil {
		return fmt.Errorf("clear guard state in redis: %w", err)
	}
	return nil
}
