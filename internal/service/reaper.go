package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
)

const sweepBatch = 100

// Reaper releases the seats of bookings that were not paid in time.
type Reaper struct {
	bookings BookingStore
	ledger   *SeatLedger
	grace    time.Duration
	clock    Clock
	log      *logger.Logger
}

// NewReaper builds a reaper. grace delays the overdue sweep past the
// booking's hold expiry so it does not race the delayed message.
func NewReaper(bookings BookingStore, ledger *SeatLedger, grace time.Duration, clock Clock, log *logger.Logger) *Reaper {
	if clock == nil {
		clock = SystemClock
	}
	return &Reaper{bookings: bookings, ledger: ledger, grace: grace, clock: clock, log: log.WithComponent("reaper")}
}

// Reap deletes the booking and frees its seats if it is still unpaid.
// Paid or missing bookings are left alone. When the release fails the
// booking is kept so a later sweep retries it.
func (r *Reaper) Reap(ctx context.Context, bookingID string) error {
	log := r.log.WithFields(map[string]any{"booking_id": bookingID})

	b, err := r.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		log.Debug("booking already gone")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if b.Paid {
		log.Debug("booking paid, nothing to release")
		return nil
	}

	released, err := releaseBooking(ctx, r.ledger, r.bookings, b)
	if err != nil {
		return fmt.Errorf("release booking %s: %w", bookingID, err)
	}
	if !released {
		log.Info("booking confirmed or removed concurrently, keeping seats")
		return nil
	}
	log.Info("expired hold released", "show_id", b.ShowID, "seats", b.SeatIDs)
	return nil
}

// releaseBooking deletes the unpaid booking b and frees its seats in one
// transaction. It reports false when b was paid or removed meanwhile. On
// error nothing is changed and the booking stays visible to the sweep.
func releaseBooking(ctx context.Context, ledger *SeatLedger, bookings BookingStore, b *model.Booking) (bool, error) {
	var released, wrote bool
	err := ledger.Release(ctx, b.ShowID, b.SeatIDs, func(show *model.Show, next model.SeatSet) error {
		wrote = true
		ok, err := bookings.ReleaseUnpaid(ctx, b.ID, show.ID, show.Version, next)
		released = ok
		return err
	})
	if err != nil {
		return false, err
	}
	if !wrote {
		// show is gone, so there are no seats left to free
		return bookings.DeleteUnpaid(ctx, b.ID)
	}
	return released, nil
}

// HandleExpiry is the consumer entry point for the delayed hold message.
func (r *Reaper) HandleExpiry(ctx context.Context, ev queue.HoldExpiryEvent) error {
	return r.Reap(ctx, ev.BookingID)
}

// SweepOverdue reaps unpaid bookings whose hold ended more than grace ago.
// It returns how many bookings were examined.
func (r *Reaper) SweepOverdue(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.grace)
	ids, err := r.bookings.ListOverdueUnpaid(ctx, cutoff, sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list overdue bookings: %w", err)
	}
	var failed int
	for _, id := range ids {
		if err := r.Reap(ctx, id); err != nil {
			failed++
			r.log.WithError(err).Error("sweep reap failed", "booking_id", id)
		}
	}
	if len(ids) > 0 {
		r.log.Info("overdue sweep finished", "examined", len(ids), "failed", failed)
	}
	return len(ids), nil
}
