// Package payment talks to the hosted checkout provider. The booking
// workflow only sees the Provider interface; StripeProvider is the
// production implementation.
package payment

import (
	"context"
	"errors"
)

// MetadataBookingID is the metadata key that correlates a checkout
// session (and its payment intent) back to a booking.
const MetadataBookingID = "bookingId"

// Event types the confirmation handler acts on.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentSucceeded  = "payment_intent.succeeded"
)

var (
	ErrInvalidSignature     = errors.New("payment: invalid webhook signature")
	ErrWebhookSecretMissing = errors.New("payment: webhook secret not configured")
	ErrSessionNotFound      = errors.New("payment: checkout session not found")
)

// SessionRequest describes one hosted checkout for a single booking.
type SessionRequest struct {
	AmountMinor   int64  // total to charge, in minor units of Currency
	Currency      string // ISO code, lower case
	ItemName      string // line item label, usually the movie title
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is a created or looked-up checkout session.
type Session struct {
	ID              string
	URL             string
	PaymentIntentID string
	Metadata        map[string]string
}

// Event is a verified webhook event reduced to what correlation needs.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	Metadata        map[string]string // metadata of the event's object

	// DecodeErr is set when the signature verified but the event's object
	// could not be decoded. Correlation fields are then empty.
	DecodeErr error
}

// BookingID returns the correlated booking id carried in the event metadata.
func (e *Event) BookingID() string {
	if e == nil {
		return ""
	}
	return e.Metadata[MetadataBookingID]
}

// Provider is the checkout surface the booking workflow depends on.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseEvent verifies the signature over the raw body and decodes the event.
	ParseEvent(payload []byte, signature string) (*Event, error)
	// SessionByPaymentIntent finds the checkout session that produced a payment intent.
	SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error)
}
