package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/cinego/internal/logger"
)

type BookingPurger interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ShowPurger interface {
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionResult counts what one retention run removed.
type RetentionResult struct {
	Bookings int64
	Shows    int64
}

// Retention deletes bookings and shows older than a fixed number of
// months, paid or not.
type Retention struct {
	bookings BookingPurger
	shows    ShowPurger
	months   int
	clock    Clock
	log      *logger.Logger
}

// NewRetention purges records older than months.
func NewRetention(bookings BookingPurger, shows ShowPurger, months int, clock Clock, log *logger.Logger) *Retention {
	if clock == nil {
		clock = SystemClock
	}
	if months <= 0 {
		months = 6
	}
	return &Retention{bookings: bookings, shows: shows, months: months, clock: clock, log: log.WithComponent("retention")}
}

// Cutoff is the instant before which records are purged.
func (r *Retention) Cutoff() time.Time {
	return r.clock.Now().UTC().AddDate(0, -r.months, 0)
}

// Run deletes old bookings, then old shows, and reports how many of each.
func (r *Retention) Run(ctx context.Context) (RetentionResult, error) {
	cutoff := r.Cutoff()
	var res RetentionResult

	n, err := r.bookings.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("purge bookings: %w", err)
	}
	res.Bookings = n

	n, err = r.shows.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("purge shows: %w", err)
	}
	res.Shows = n

	r.log.Info("retention sweep done", "cutoff", cutoff, "bookings", res.Bookings, "shows", res.Shows)
	return res, nil
}
