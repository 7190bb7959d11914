package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds a provider. backends may be nil to use Stripe's
// default endpoints.
func NewStripeProvider(secretKey, webhookSecret string, backends *stripe.Backends) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("payment: STRIPE_SECRET_KEY is not set")
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}, nil
}

// CreateSession opens a one-line-item Checkout session in payment mode.
func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ItemName),
				},
				UnitAmount: stripe.Int64(req.AmountMinor),
			},
			Quantity: stripe.Int64(1),
		}},
		Metadata: req.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
		params.PaymentIntentData.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(s), nil
}

// ParseEvent verifies payload and reduces it to an Event. Only a missing
// secret or a bad signature is an error; an undecodable object comes back
// as a verified event with DecodeErr set.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (*Event, error) {
	if p.webhookSecret == "" {
		return nil, ErrWebhookSecretMissing
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			out.DecodeErr = fmt.Errorf("stripe: decode checkout session: %w", err)
			return out, nil
		}
		out.SessionID = cs.ID
		out.Metadata = cs.Metadata
		if cs.PaymentIntent != nil {
			out.PaymentIntentID = cs.PaymentIntent.ID
		}
	case EventPaymentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			out.DecodeErr = fmt.Errorf("stripe: decode payment intent: %w", err)
			return out, nil
		}
		out.PaymentIntentID = pi.ID
		out.Metadata = pi.Metadata
	}
	return out, nil
}

// SessionByPaymentIntent returns ErrSessionNotFound when no session matches.
func (p *StripeProvider) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error) {
	lp := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(paymentIntentID)}
	lp.Limit = stripe.Int64(1)
	lp.Single = true
	lp.Context = ctx

	it := p.api.CheckoutSessions.List(lp)
	if it.Next() {
		return toSession(it.CheckoutSession()), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list checkout sessions: %w", err)
	}
	return nil, ErrSessionNotFound
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{ID: s.ID, URL: s.URL, Metadata: s.Metadata}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
