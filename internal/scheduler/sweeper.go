// Package scheduler runs the periodic maintenance jobs of the worker: the
// overdue hold sweep and the retention cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/iliyamo/cinego/internal/logger"
)

const sweepLockKey = "hold-sweep"

type holdSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Sweeper periodically reaps holds whose expiry message never arrived.
type Sweeper struct {
	reaper   holdSweeper
	locker   Locker
	interval time.Duration
	log      *logger.Logger
}

// NewSweeper runs reaper.SweepOverdue every interval under a shared lock.
func NewSweeper(reaper holdSweeper, locker Locker, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if locker == nil {
		locker = LocalLocker{}
	}
	return &Sweeper{reaper: reaper, locker: locker, interval: interval, log: log.WithComponent("sweeper")}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	release, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
	if err != nil {
		s.log.WithError(err).Warn("sweep lock failed")
		return
	}
	if !ok {
		return
	}
	defer release()

	n, err := s.reaper.SweepOverdue(ctx)
	if err != nil {
		s.log.WithError(err).Error("sweep overdue holds failed", "reaped", n)
		return
	}
	if n > 0 {
		s.log.Info("overdue holds reaped", "count", n)
	}
}
