package ratelimit

import (
	"context"
	"time"
)

// Store persists attempt timestamps for sliding-window rules.
type Store interface {
	TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	OldestAttempt(ctx context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
