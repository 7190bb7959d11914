package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/payment"
)

// BookingOptions carries the hold and checkout settings.
type BookingOptions struct {
	HoldWindow   time.Duration
	Currency     string
	ExchangeRate float64
	SuccessURL   string
	CancelURL    string
}

// HoldRequest asks for seats on a show on behalf of an authenticated user.
type HoldRequest struct {
	UserID  string
	Email   string
	ShowID  string
	SeatIDs []string
}

// HoldResult is what the client needs to continue to checkout.
type HoldResult struct {
	BookingID   string    `json:"bookingId"`
	RedirectURL string    `json:"redirectUrl"`
	Amount      int64     `json:"amount"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// BookingService runs the hold half of the workflow: claim seats, record
// an unpaid booking, open a checkout session and schedule the reaper.
type BookingService struct {
	ledger   *SeatLedger
	bookings BookingStore
	movies   MovieGetter
	payments payment.Provider
	expiry   ExpiryScheduler
	opts     BookingOptions
	clock    Clock
	log      *logger.Logger
}

// NewBookingService builds the hold workflow. A nil clock uses the wall clock.
func NewBookingService(
	ledger *SeatLedger,
	bookings BookingStore,
	movies MovieGetter,
	payments payment.Provider,
	expiry ExpiryScheduler,
	opts BookingOptions,
	clock Clock,
	log *logger.Logger,
) *BookingService {
	if clock == nil {
		clock = SystemClock
	}
	return &BookingService{
		ledger:   ledger,
		bookings: bookings,
		movies:   movies,
		payments: payments,
		expiry:   expiry,
		opts:     opts,
		clock:    clock,
		log:      log.WithComponent("booking"),
	}
}

// Hold claims the requested seats and records the unpaid booking in the
// same write, then returns the checkout redirect. A checkout failure
// releases the seats and removes the booking before returning.
func (s *BookingService) Hold(ctx context.Context, req HoldRequest) (*HoldResult, error) {
	showID := strings.TrimSpace(req.ShowID)
	seats := model.NormalizeSeatIDs(req.SeatIDs)
	switch {
	case req.UserID == "":
		return nil, validationf("user is required")
	case showID == "":
		return nil, validationf("showId is required")
	case len(seats) == 0:
		return nil, validationf("at least one seat is required")
	}

	now := s.clock.Now().UTC()
	var b *model.Booking
	show, err := s.ledger.Claim(ctx, showID, seats, func(show *model.Show, next model.SeatSet) error {
		amount := show.Price * int64(len(seats))
		charge, err := payment.ToMinorUnits(amount, s.opts.ExchangeRate)
		if err != nil {
			return validationf("show price cannot be charged: %v", err)
		}
		b = &model.Booking{
			ID:             uuid.NewString(),
			UserID:         req.UserID,
			ShowID:         show.ID,
			SeatIDs:        seats,
			Amount:         amount,
			ChargeAmount:   charge,
			ChargeCurrency: s.opts.Currency,
			ExchangeRate:   s.opts.ExchangeRate,
			HoldExpiresAt:  now.Add(s.opts.HoldWindow),
			CreatedAt:      now,
		}
		if err := s.bookings.CreateHeld(ctx, b, show.Version, next); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log := s.log.WithUserID(req.UserID).WithFields(map[string]any{"show_id": show.ID, "seats": seats, "booking_id": b.ID})

	sess, err := s.payments.CreateSession(ctx, payment.SessionRequest{
		AmountMinor:   b.ChargeAmount,
		Currency:      s.opts.Currency,
		ItemName:      s.itemName(ctx, show.MovieID),
		SuccessURL:    s.opts.SuccessURL,
		CancelURL:     s.opts.CancelURL,
		CustomerEmail: req.Email,
		Metadata:      map[string]string{payment.MetadataBookingID: b.ID},
	})
	if err != nil {
		s.abandon(ctx, log, b)
		return nil, &ProviderError{Op: "create checkout session", Err: err}
	}
	if err := s.bookings.SetPaymentSession(ctx, b.ID, sess.ID, sess.URL); err != nil {
		s.abandon(ctx, log, b)
		return nil, fmt.Errorf("store payment session: %w", err)
	}

	if err := s.expiry.ScheduleHoldExpiry(ctx, b.ID, s.opts.HoldWindow); err != nil {
		log.WithError(err).Warn("schedule hold expiry failed, overdue sweep will reap")
	}

	log.Info("seats held", "amount", b.Amount, "charge", b.ChargeAmount, "currency", s.opts.Currency)
	return &HoldResult{BookingID: b.ID, RedirectURL: sess.URL, Amount: b.Amount, ExpiresAt: b.HoldExpiresAt}, nil
}

// OccupiedSeats lists a show's occupied seat ids.
func (s *BookingService) OccupiedSeats(ctx context.Context, showID string) ([]string, error) {
	if strings.TrimSpace(showID) == "" {
		return nil, validationf("showId is required")
	}
	return s.ledger.Occupied(ctx, showID)
}

// UserBookings lists a user's bookings, newest first.
func (s *BookingService) UserBookings(ctx context.Context, userID string) ([]model.BookingView, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) itemName(ctx context.Context, movieID string) string {
	m, err := s.movies.GetByID(ctx, movieID)
	if err != nil || m.Title == "" {
		return "Ticket"
	}
	return m.Title
}

// abandon undoes a hold whose checkout could not be opened. It runs on a
// context that survives the caller's cancellation. If the release fails
// the booking is kept, so the overdue sweep frees the seats later.
func (s *BookingService) abandon(ctx context.Context, log *logger.Logger, b *model.Booking) {
	if _, err := releaseBooking(context.WithoutCancel(ctx), s.ledger, s.bookings, b); err != nil {
		log.WithError(err).Error("compensating release failed, leaving booking for the overdue sweep")
	}
}
