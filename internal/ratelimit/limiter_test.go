package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestLimiter(store Store, now *time.Time) *Limiter {
	return NewLimiter(store, Limits{LoginPerMinute: 5, PerHour: 500, PerDay: 2000}).WithClock(func() time.Time { return *now })
}

func TestLoginClassDeniesSixthAttemptWithinMinute(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	limiter := newTestLimiter(store, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := limiter.Allow(ctx, "192.0.2.1", ClassLogin)
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d: expected allowed", i+1)
		}
		if decision.Remaining != 4-i {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 4-i, decision.Remaining)
		}
		now = now.Add(time.Second)
	}

	decision, err := limiter.Allow(ctx, "192.0.2.1", ClassLogin)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if decision.Allowed || decision.Rule != "login-minute" {
		t.Fatalf("expected login-minute denial, got %+v", decision)
	}
	if decision.RetryAfter != 55*time.Second {
		t.Fatalf("expected retry after 55s, got %s", decision.RetryAfter)
	}

	other, err := limiter.Allow(ctx, "192.0.2.2", ClassLogin)
	if err != nil || !other.Allowed {
		t.Fatalf("expected other client to be allowed, got %+v %v", other, err)
	}

	now = now.Add(55 * time.Second)
	if _, errAfter := limiter.Allow(ctx, "192.0.2.1", ClassLogin); errAfter != nil {
		t.Fatalf("expected allowance once the oldest attempt leaves the window: %v", errAfter)
	}
}

func TestDeniedAttemptsAreNotRecorded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	limiter := newTestLimiter(store, &now)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, _ = limiter.Allow(ctx, "client", ClassLogin)
	}
	count, err := store.CountAttempts(ctx, "global-hour:client", time.Hour, now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected only allowed attempts in the global bucket, got %d", count)
	}
}

func TestDefaultClassIgnoresLoginRule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(NewMemoryStore(), &now)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := limiter.Allow(ctx, "client", ClassDefault); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
}

func TestGlobalBoundAppliesAcrossClasses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(NewMemoryStore(), Limits{LoginPerMinute: 5, PerHour: 3, PerDay: 10}).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Allow(ctx, "client", ClassDefault); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
	decision, err := limiter.Allow(ctx, "client", ClassLogin)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected global hour bound to deny login, got %v", err)
	}
	if decision.Rule != "global-hour" {
		t.Fatalf("expected global-hour rule, got %q", decision.Rule)
	}
}

type failingStore struct {
	*MemoryStore
}

func (f *failingStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return 0, errors.New("store down")
}

func TestStoreFailureAllowsRequest(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &failingStore{MemoryStore: NewMemoryStore()}
	limiter := newTestLimiter(store, &now)

	decision, err := limiter.Allow(context.Background(), "client", ClassLogin)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected fail-open decision, got %+v %v", decision, err)
	}
}

func TestEmptyClientKeyIsAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(NewMemoryStore(), &now)
	if decision, err := limiter.Allow(context.Background(), "", ClassLogin); err != nil || !decision.Allowed {
		t.Fatalf("expected empty key to bypass limits, got %+v %v", decision, err)
	}
}

func TestMemoryStoreTrimRemovesEmptyKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = store.RecordAttempt(ctx, "k", at)
	_ = store.RecordAttempt(ctx, "k", at.Add(-time.Second))
	oldest, ok, err := store.OldestAttempt(ctx, "k", time.Minute, at)
	if err != nil || !ok || !oldest.Equal(at.Add(-time.Second)) {
		t.Fatalf("expected ordered log, got %s ok=%v err=%v", oldest, ok, err)
	}
	if err := store.TrimWindow(ctx, "k", time.Minute, at.Add(2*time.Minute)); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if store.Keys() != 0 {
		t.Fatalf("expected empty key to be dropped, got %d keys", store.Keys())
	}
}

func TestMemoryStorePurgeEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	limiter := newTestLimiter(store, &now)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if _, err := limiter.Allow(ctx, fmt.Sprintf("client-%d", i), ClassLogin); err != nil {
			t.Fatalf("client %d: %v", i, err)
		}
	}
	if got := store.Keys(); got != 3000 {
		t.Fatalf("expected 3000 keys, got %d", got)
	}
	if maxWindow := limiter.MaxWindow(); maxWindow != 24*time.Hour {
		t.Fatalf("expected max window 24h, got %s", maxWindow)
	}

	now = now.Add(time.Hour)
	if removed := store.PurgeExpired(now, limiter.MaxWindow()); removed != 0 {
		t.Fatalf("expected keys inside the day window to stay, removed %d", removed)
	}

	now = now.Add(72 * time.Hour)
	if _, err := limiter.Allow(ctx, "203.0.113.9", ClassLogin); err != nil {
		t.Fatalf("fresh client: %v", err)
	}
	if removed := store.PurgeExpired(limiter.Now(), limiter.MaxWindow()); removed != 3000 {
		t.Fatalf("expected 3000 idle keys removed, got %d", removed)
	}
	if got := store.Keys(); got != 3 {
		t.Fatalf("expected only the fresh client's keys, got %d", got)
	}
}
