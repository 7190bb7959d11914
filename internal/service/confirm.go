package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/payment"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
)

// Confirmer handles payment webhooks. Only a bad signature or a missing
// secret is reported back; every other outcome is acknowledged so the
// provider stops redelivering.
type Confirmer struct {
	payments  payment.Provider
	bookings  BookingStore
	publisher ConfirmationPublisher
	clock     Clock
	log       *logger.Logger
}

// NewConfirmer builds the webhook side of the workflow.
func NewConfirmer(payments payment.Provider, bookings BookingStore, publisher ConfirmationPublisher, clock Clock, log *logger.Logger) *Confirmer {
	if clock == nil {
		clock = SystemClock
	}
	return &Confirmer{
		payments:  payments,
		bookings:  bookings,
		publisher: publisher,
		clock:     clock,
		log:       log.WithComponent("confirm"),
	}
}

// Handle verifies payload against signature and confirms the correlated booking.
func (c *Confirmer) Handle(ctx context.Context, payload []byte, signature string) error {
	ev, err := c.payments.ParseEvent(payload, signature)
	if errors.Is(err, payment.ErrWebhookSecretMissing) {
		c.log.Error("webhook received but no webhook secret is configured")
		return ErrWebhookNotConfigured
	}
	if err != nil {
		c.log.WithError(err).Warn("webhook signature verification failed")
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	log := c.log.WithFields(map[string]any{"event_id": ev.ID, "event_type": ev.Type})
	if ev.Type != payment.EventCheckoutCompleted && ev.Type != payment.EventPaymentSucceeded {
		log.Debug("ignoring webhook event")
		return nil
	}
	if ev.DecodeErr != nil {
		log.WithError(ev.DecodeErr).Error("verified payment event could not be decoded, acknowledging")
		return nil
	}

	bookingID := c.correlate(ctx, log, ev)
	if bookingID == "" {
		log.Warn("payment event carries no booking id, discarding", "payment_intent", ev.PaymentIntentID)
		return nil
	}
	c.confirm(ctx, log.WithFields(map[string]any{"booking_id": bookingID}), bookingID, ev)
	return nil
}

// correlate reads the booking id from the event metadata and falls back to
// the checkout session that produced the payment intent.
func (c *Confirmer) correlate(ctx context.Context, log *logger.Logger, ev *payment.Event) string {
	if id := ev.BookingID(); id != "" {
		return id
	}
	if ev.PaymentIntentID == "" {
		return ""
	}
	sess, err := c.payments.SessionByPaymentIntent(ctx, ev.PaymentIntentID)
	if err != nil {
		log.WithError(err).Warn("checkout session lookup by payment intent failed", "payment_intent", ev.PaymentIntentID)
		return ""
	}
	return sess.Metadata[payment.MetadataBookingID]
}

func (c *Confirmer) confirm(ctx context.Context, log *logger.Logger, bookingID string, ev *payment.Event) {
	changed, err := c.bookings.MarkPaid(ctx, bookingID, c.clock.Now())
	if errors.Is(err, repository.ErrBookingNotFound) {
		log.Error("payment received for a booking that no longer exists", "payment_intent", ev.PaymentIntentID)
		return
	}
	if err != nil {
		log.WithError(err).Error("mark booking paid failed")
		return
	}
	if !changed {
		log.Info("booking already paid, duplicate delivery")
		return
	}
	log.Info("booking paid")

	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		log.WithError(err).Error("load paid booking for notification failed")
		return
	}
	confirmed := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.SeatIDs,
		Amount:      b.Amount,
		ConfirmedAt: c.clock.Now().UTC(),
	}
	if err := c.publisher.PublishBookingConfirmed(ctx, confirmed); err != nil {
		log.WithError(err).Error("publish booking confirmation failed")
	}
}
