package catalog

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// BackgroundSweeper periodically clears expired featured flags for items nobody reads.
type BackgroundSweeper struct {
	sweeper  *Sweeper
	interval time.Duration
}

// NewBackgroundSweeper returns nil when interval is not positive.
func NewBackgroundSweeper(sweeper *Sweeper, interval time.Duration) *BackgroundSweeper {
	if sweeper == nil || interval <= 0 {
		return nil
	}
	return &BackgroundSweeper{sweeper: sweeper, interval: interval}
}

// Start launches the sweep loop in a background goroutine.
func (b *BackgroundSweeper) Start(ctx context.Context) {
	if b == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go b.run(ctx)
	log.Infof("featured sweeper started (interval=%s)", b.interval)
}

func (b *BackgroundSweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		b.sweepOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(b.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (b *BackgroundSweeper) sweepOnce(ctx context.Context) {
	n, err := b.sweeper.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("featured sweeper: sweep failed")
		}
		return
	}
	if n > 0 {
		log.Infof("featured sweeper: cleared %d expired items", n)
	}
}
