package model

import "time"

// Booking is one user's attempt to buy seats for a show. It is created
// unpaid when the seats are claimed, flipped to paid by the payment
// webhook, or deleted by the expiry reaper once the hold window passes.
//
// Fields:
//  ID             – primary key identifier (uuid).
//  UserID         – user who holds the seats.
//  ShowID         – show the seats belong to.
//  SeatIDs        – held seat ids.
//  Amount         – price × len(SeatIDs) at hold time, base units.
//  Paid           – set once by the payment webhook.
//  PaymentLink    – hosted checkout URL; cleared when paid.
//  SessionID      – checkout session id at the provider.
//  ChargeAmount   – amount charged by the provider, minor units.
//  ChargeCurrency – provider currency code.
//  ExchangeRate   – base units per provider currency unit used for ChargeAmount.
//  HoldExpiresAt  – when the reaper may release the seats.
//  CreatedAt      – creation timestamp.
//  PaidAt         – confirmation timestamp (nullable).
type Booking struct {
	ID             string     `json:"id"`                    // bookings.id
	UserID         string     `json:"userId"`                // bookings.user_id
	ShowID         string     `json:"showId"`                // bookings.show_id
	SeatIDs        []string   `json:"bookedSeats"`           // bookings.seat_ids (JSON)
	Amount         int64      `json:"amount"`                // bookings.amount
	Paid           bool       `json:"isPaid"`                // bookings.is_paid
	PaymentLink    *string    `json:"paymentLink,omitempty"` // bookings.payment_link (nullable)
	SessionID      *string    `json:"-"`                     // bookings.session_id (nullable)
	ChargeAmount   int64      `json:"chargeAmount"`          // bookings.charge_amount
	ChargeCurrency string     `json:"chargeCurrency"`        // bookings.charge_currency
	ExchangeRate   float64    `json:"exchangeRate"`          // bookings.exchange_rate
	HoldExpiresAt  time.Time  `json:"holdExpiresAt"`         // bookings.hold_expires_at
	CreatedAt      time.Time  `json:"createdAt"`             // bookings.created_at
	PaidAt         *time.Time `json:"paidAt,omitempty"`      // bookings.paid_at (nullable)
}

// BookingView is a booking joined with its show, movie and owner for listings.
type BookingView struct {
	Booking
	Show      Show   `json:"show"`
	Movie     Movie  `json:"movie"`
	UserEmail string `json:"userEmail,omitempty"`
	UserName  string `json:"userName,omitempty"`
}
