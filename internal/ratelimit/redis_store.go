package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore persists attempts in Redis sorted sets scored by Unix nanoseconds.
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

// NewRedisStore constructs a store using the provided Redis client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	return &RedisStore{client: client, cfg: cfg}
}

// RecordAttempt stores the timestamp and refreshes the key TTL.
func (r *RedisStore) RecordAttempt(ctx context.Context, key string, at time.Time) error {
	redisKey := r.key(key)
	// Members are unique so attempts sharing a timestamp are all counted.
	member := redis.Z{Score: float64(at.UnixNano()), Member: strconv.FormatInt(at.UnixNano(), 10) + "-" + uuid.NewString()}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, member)
	if r.cfg.TTL > 0 {
		pipe.Expire(ctx, redisKey, r.cfg.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}
	return nil
}

// CountAttempts returns how many attempts occurred within the window ending at reference.
func (r *RedisStore) CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	minScore, maxScore := windowBounds(window, reference)
	count, err := r.client.ZCount(ctx, r.key(key), minScore, maxScore).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// TrimWindow removes attempts at or before reference-window.
func (r *RedisStore) TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}
	threshold := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	if err := r.client.ZRemRangeByScore(ctx, r.key(key), "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// OldestAttempt returns the oldest attempt remaining inside the window.
func (r *RedisStore) OldestAttempt(ctx context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}
	minScore, maxScore := windowBounds(window, reference)
	values, err := r.client.ZRangeByScoreWithScores(ctx, r.key(key), &redis.ZRangeBy{
		Min:   minScore,
		Max:   maxScore,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(0, int64(values[0].Score)).UTC(), true, nil
}

func (r *RedisStore) key(key string) string {
	if r.cfg.KeyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, key)
}

// windowBounds returns the exclusive lower and inclusive upper score bounds of a window.
func windowBounds(window time.Duration, reference time.Time) (string, string) {
	return "(" + strconv.FormatInt(reference.Add(-window).UnixNano(), 10), strconv.FormatInt(reference.UnixNano(), 10)
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
