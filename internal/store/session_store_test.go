package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/veritas-stock/stockd/internal/auth"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	client, mr := newTestRedis(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewRedisSessionStore(client, "stockd", func() time.Time { return now })
	ctx := context.Background()

	state := auth.PendingSecondFactor(42, now, 10*time.Minute)
	if err := s.Put(ctx, "sid", state); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("stockd:session:sid"); ttl != 10*time.Minute {
		t.Fatalf("expected ttl 10m, got %s", ttl)
	}

	got, ok, err := s.Get(ctx, "sid")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Phase != auth.PhasePendingSecondFactor || got.PrincipalID != 42 || !got.ExpiresAt.Equal(state.ExpiresAt) {
		t.Fatalf("unexpected state %+v", got)
	}

	if err := s.Put(ctx, "sid", auth.Anonymous()); err != nil {
		t.Fatalf("put anonymous: %v", err)
	}
	if mr.Exists("stockd:session:sid") {
		t.Fatalf("expected anonymous put to delete the key")
	}
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	client, mr := newTestRedis(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewRedisSessionStore(client, "", func() time.Time { return now })
	ctx := context.Background()

	if err := s.Put(ctx, "sid", auth.Authenticated(1, now, time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(time.Hour + time.Second)
	if _, ok, err := s.Get(ctx, "sid"); err != nil || ok {
		t.Fatalf("expected key expired by redis, ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "late", auth.Authenticated(1, now.Add(-2*time.Hour), time.Hour)); err != nil {
		t.Fatalf("put expired: %v", err)
	}
	if mr.Exists("session:late") {
		t.Fatalf("expected already expired state not to be stored")
	}
}

func TestRedisSessionStoreDeleteIsIdempotent(t *testing.T) {
	client, _ := newTestRedis(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewRedisSessionStore(client, "stockd", func() time.Time { return now })
	ctx := context.Background()

	if err := sessions.Put(ctx, "sid", auth.Authenticated(7, now, 24*time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sessions.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := sessions.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, ok, err := sessions.Get(ctx, "sid"); err != nil || ok {
		t.Fatalf("expected deleted session, ok=%v err=%v", ok, err)
	}
}
