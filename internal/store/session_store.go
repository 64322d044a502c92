package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/veritas-stock/stockd/internal/auth"
)

// RedisSessionStore keeps admin sessions in Redis with a TTL matching each state's expiry.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewRedisSessionStore constructs a RedisSessionStore.
func NewRedisSessionStore(client redis.UniversalClient, keyPrefix string, now func() time.Time) *RedisSessionStore {
	if now == nil {
		now = time.Now
	}
	return &RedisSessionStore{client: client, keyPrefix: keyPrefix, now: now}
}

// Get returns the state for id when present and unexpired.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (auth.State, bool, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.State{}, false, nil
	}
	if err != nil {
		return auth.State{}, false, fmt.Errorf("redis get session: %w", err)
	}
	var state auth.State
	if errUnmarshal := json.Unmarshal(raw, &state); errUnmarshal != nil {
		return auth.State{}, false, fmt.Errorf("decode session: %w", errUnmarshal)
	}
	if state.Expired(s.now()) {
		return auth.State{}, false, nil
	}
	return state, true, nil
}

// Put replaces the state for id. Anonymous or already expired states delete the key.
func (s *RedisSessionStore) Put(ctx context.Context, id string, state auth.State) error {
	ttl := state.ExpiresAt.Sub(s.now())
	if state.Phase == auth.PhaseAnonymous || ttl <= 0 {
		return s.Delete(ctx, id)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if errSet := s.client.Set(ctx, s.key(id), raw, ttl).Err(); errSet != nil {
		return fmt.Errorf("redis set session: %w", errSet)
	}
	return nil
}

// Delete removes id.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) key(id string) string {
	if s.keyPrefix == "" {
		return "session:" + id
	}
	return s.keyPrefix + ":session:" + id
}

var _ auth.SessionStore = (*RedisSessionStore)(nil)
