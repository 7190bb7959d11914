package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/repository"
)

// maxClaimAttempts bounds the reload-and-retry loop when another writer
// bumps the show version between our read and our write.
const maxClaimAttempts = 5

// SeatWrite persists next as the ledger of show, conditional on
// show.Version. Returning repository.ErrVersionConflict makes the ledger
// reload the show and try again. A write may store other rows in the same
// transaction as the ledger.
type SeatWrite func(show *model.Show, next model.SeatSet) error

// SeatLedger checks and mutates a show's occupied seats. Every write is a
// compare-and-swap on the show version, so two concurrent claims for the
// same seat cannot both succeed.
type SeatLedger struct {
	shows ShowStore
	log   *logger.Logger
}

// NewSeatLedger builds a ledger over the show store.
func NewSeatLedger(shows ShowStore, log *logger.Logger) *SeatLedger {
	return &SeatLedger{shows: shows, log: log.WithComponent("ledger")}
}

// Available reports whether none of seatIDs is occupied, and which are.
// A missing show is reported as unavailable rather than as an error.
func (l *SeatLedger) Available(ctx context.Context, showID string, seatIDs []string) (bool, []string, error) {
	show, err := l.shows.GetByID(ctx, showID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	taken := takenSeats(show, model.NormalizeSeatIDs(seatIDs))
	return len(taken) == 0, taken, nil
}

func takenSeats(show *model.Show, seatIDs []string) []string {
	return show.OccupiedSeats.Taken(seatIDs)
}

// Claim marks seatIDs occupied. It fails with *UnavailableError when any
// seat is taken at the version it writes against, and returns the show as
// written on success. A nil write stores the ledger on its own.
func (l *SeatLedger) Claim(ctx context.Context, showID string, seatIDs []string, write SeatWrite) (*model.Show, error) {
	seatIDs = model.NormalizeSeatIDs(seatIDs)
	if write == nil {
		write = l.storeSeats(ctx)
	}
	for attempt := 1; ; attempt++ {
		show, err := l.shows.GetByID(ctx, showID)
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, fmt.Errorf("show %s: %w", showID, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if taken := takenSeats(show, seatIDs); len(taken) > 0 {
			return nil, &UnavailableError{Seats: taken}
		}

		next := show.OccupiedSeats.With(seatIDs...)
		err = write(show, next)
		switch {
		case err == nil:
			show.OccupiedSeats = next
			show.Version++
			return show, nil
		case errors.Is(err, repository.ErrVersionConflict):
			if attempt >= maxClaimAttempts {
				return nil, fmt.Errorf("claim on show %s: %w", showID, ErrLedgerBusy)
			}
			l.log.Debug("seat ledger changed underneath claim, retrying", "show_id", showID, "attempt", attempt)
		case errors.Is(err, repository.ErrShowNotFound):
			return nil, fmt.Errorf("show %s: %w", showID, ErrNotFound)
		default:
			return nil, err
		}
	}
}

// Release frees seatIDs. Releasing on a vanished show is a no-op and write
// is not called. A nil write stores the ledger on its own and skips the
// write when the seats are already free.
func (l *SeatLedger) Release(ctx context.Context, showID string, seatIDs []string, write SeatWrite) error {
	seatIDs = model.NormalizeSeatIDs(seatIDs)
	if write == nil {
		write = l.storeSeats(ctx)
	}
	for attempt := 1; ; attempt++ {
		show, err := l.shows.GetByID(ctx, showID)
		if errors.Is(err, repository.ErrShowNotFound) {
			l.log.Info("release on missing show ignored", "show_id", showID)
			return nil
		}
		if err != nil {
			return err
		}

		err = write(show, show.OccupiedSeats.Without(seatIDs...))
		switch {
		case err == nil, errors.Is(err, repository.ErrShowNotFound):
			return nil
		case errors.Is(err, repository.ErrVersionConflict):
			if attempt >= maxClaimAttempts {
				return fmt.Errorf("release on show %s: %w", showID, ErrLedgerBusy)
			}
		default:
			return err
		}
	}
}

// storeSeats writes the ledger alone, skipping writes that change nothing.
func (l *SeatLedger) storeSeats(ctx context.Context) SeatWrite {
	return func(show *model.Show, next model.SeatSet) error {
		if next.Len() == show.OccupiedSeats.Len() {
			return nil
		}
		return l.shows.UpdateSeats(ctx, show.ID, show.Version, next)
	}
}

// Occupied returns the show's occupied seat ids in seat-map order.
func (l *SeatLedger) Occupied(ctx context.Context, showID string) ([]string, error) {
	show, err := l.shows.GetByID(ctx, showID)
	if errors.Is(err, repository.ErrShowNotFound) {
		return nil, fmt.Errorf("show %s: %w", showID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return show.OccupiedSeats.IDs(), nil
}
