package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/payment"
)

func TestConfirm_MarksPaidAndNotifiesOnce(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1", "A2")
	require.NoError(t, err)

	require.NoError(t, h.pay(res.BookingID))
	require.NoError(t, h.pay(res.BookingID))

	b, err := h.bookings.GetByID(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.True(t, b.Paid)
	assert.Nil(t, b.PaymentLink)
	require.NotNil(t, b.PaidAt)

	require.Len(t, h.publisher.confirmed, 1)
	ev := h.publisher.confirmed[0]
	assert.Equal(t, res.BookingID, ev.BookingID)
	assert.Equal(t, "ann", ev.UserID)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)

	assert.Equal(t, 1, h.bookings.count())
	assert.Equal(t, []string{"A1", "A2"}, h.shows.occupied(testShowID))
}

func TestConfirm_RejectsBadSignature(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1")
	require.NoError(t, err)

	err = h.confirmer.Handle(context.Background(), []byte(`{}`), "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	b, err := h.bookings.GetByID(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.False(t, b.Paid)
}

func TestConfirm_MissingSecret(t *testing.T) {
	h := newHarness()
	h.provider.secretMissing = true
	err := h.confirmer.Handle(context.Background(), []byte(`{}`), "anything")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestConfirm_FallsBackToPaymentIntentLookup(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1")
	require.NoError(t, err)

	h.provider.byIntent["pi_9"] = &payment.Session{ID: "cs_1", Metadata: map[string]string{payment.MetadataBookingID: res.BookingID}}
	sig := h.provider.sign(&payment.Event{ID: "evt_pi", Type: payment.EventPaymentSucceeded, PaymentIntentID: "pi_9", Metadata: map[string]string{}})

	require.NoError(t, h.confirmer.Handle(context.Background(), []byte(`{}`), sig))
	b, err := h.bookings.GetByID(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.True(t, b.Paid)
}

func TestConfirm_UncorrelatedEventIsAcknowledged(t *testing.T) {
	h := newHarness()
	sig := h.provider.sign(&payment.Event{ID: "evt_x", Type: payment.EventPaymentSucceeded, PaymentIntentID: "pi_unknown"})
	assert.NoError(t, h.confirmer.Handle(context.Background(), []byte(`{}`), sig))

	sig = h.provider.sign(&payment.Event{ID: "evt_y", Type: payment.EventCheckoutCompleted})
	assert.NoError(t, h.confirmer.Handle(context.Background(), []byte(`{}`), sig))
	assert.Empty(t, h.publisher.confirmed)
}

func TestConfirm_UndecodableEventIsAcknowledged(t *testing.T) {
	h := newHarness()
	sig := h.provider.sign(&payment.Event{
		ID:        "evt_bad",
		Type:      payment.EventCheckoutCompleted,
		DecodeErr: errors.New("decode checkout session: unexpected type"),
	})

	err := h.confirmer.Handle(context.Background(), []byte(`{}`), sig)

	assert.NoError(t, err)
	assert.Empty(t, h.publisher.confirmed)
}

func TestConfirm_IgnoresOtherEventTypes(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1")
	require.NoError(t, err)

	sig := h.provider.sign(&payment.Event{ID: "evt_r", Type: "charge.refunded", Metadata: map[string]string{payment.MetadataBookingID: res.BookingID}})
	require.NoError(t, h.confirmer.Handle(context.Background(), []byte(`{}`), sig))

	b, err := h.bookings.GetByID(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.False(t, b.Paid)
}

func TestConfirm_AfterReaperWonIsAcknowledged(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1")
	require.NoError(t, err)

	h.clock.Advance(testHold)
	require.NoError(t, h.reaper.Reap(context.Background(), res.BookingID))

	assert.NoError(t, h.pay(res.BookingID))
	assert.Empty(t, h.publisher.confirmed)
	assert.Zero(t, h.bookings.count())
}

func TestConfirm_PublishFailureIsAcknowledged(t *testing.T) {
	h := newHarness()
	res, err := h.hold("ann", "A1")
	require.NoError(t, err)
	h.publisher.err = errors.New("broker down")

	assert.NoError(t, h.pay(res.BookingID))
	b, err := h.bookings.GetByID(context.Background(), res.BookingID)
	require.NoError(t, err)
	assert.True(t, b.Paid)
}
