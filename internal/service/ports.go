package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/queue"
)

// ShowStore is the part of the show repository the seat ledger needs.
type ShowStore interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
	UpdateSeats(ctx context.Context, id string, version int64, seats model.SeatSet) error
}

// BookingStore is the booking record store. CreateHeld and ReleaseUnpaid
// write the booking and the show's seat ledger in one transaction.
type BookingStore interface {
	CreateHeld(ctx context.Context, b *model.Booking, version int64, seats model.SeatSet) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	SetPaymentSession(ctx context.Context, id, sessionID, link string) error
	MarkPaid(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteUnpaid(ctx context.Context, id string) (bool, error)
	ReleaseUnpaid(ctx context.Context, id, showID string, version int64, seats model.SeatSet) (bool, error)
	ListOverdueUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	ListByUser(ctx context.Context, userID string) ([]model.BookingView, error)
}

type MovieGetter interface {
	GetByID(ctx context.Context, id string) (*model.Movie, error)
}

// ExpiryScheduler arranges for the reaper to see a booking after delay.
type ExpiryScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, bookingID string, delay time.Duration) error
}

type ConfirmationPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

type ShowAnnouncer interface {
	PublishShowAdded(ctx context.Context, ev queue.ShowAddedEvent) error
}

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
