package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultFeatureDuration is how long an item stays featured.
const DefaultFeatureDuration = 24 * time.Hour

// ErrItemNotFound is returned when a catalog entry does not exist.
var ErrItemNotFound = errors.New("catalog item not found")

// Sweeper maintains the featured window of catalog entries.
type Sweeper struct {
	store    Store
	duration time.Duration
	now      func() time.Time
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store Store, duration time.Duration, now func() time.Time) *Sweeper {
	if duration <= 0 {
		duration = DefaultFeatureDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, duration: duration, now: now}
}

// SweepExpired clears every featured flag whose window ended before now.
// Repeated and concurrent calls converge on the same state.
func (s *Sweeper) SweepExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	n, err := s.store.SweepFeaturedExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("catalog: sweep featured: %w", err)
	}
	if n > 0 {
		log.WithFields(log.Fields{"count": n, "now": now.Format(time.RFC3339)}).Debug("catalog: expired featured items")
	}
	return n, nil
}

// Feature marks id as featured until now plus the feature duration, resetting any running window.
func (s *Sweeper) Feature(ctx context.Context, id uint64) (time.Time, error) {
	until := s.now().UTC().Add(s.duration)
	n, err := s.store.SetFeatured(ctx, id, until)
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: feature item %d: %w", id, err)
	}
	if n == 0 {
		return time.Time{}, ErrItemNotFound
	}
	return until, nil
}

// Unfeature clears the featured window of id regardless of its state.
func (s *Sweeper) Unfeature(ctx context.Context, id uint64) error {
	n, err := s.store.ClearFeatured(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog: unfeature item %d: %w", id, err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}
