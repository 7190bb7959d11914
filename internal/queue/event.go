// Package queue defines the messages exchanged over RabbitMQ and the
// publisher and consumer that move them.
package queue

import "time"

// Queue names. HoldWaitQueue has no consumer: messages sit there until
// their per-message expiration elapses and are then dead-lettered into
// HoldExpiredQueue.
const (
	BookingConfirmedQueue = "booking.confirmed"
	ShowAddedQueue        = "show.added"
	HoldWaitQueue         = "booking.hold.wait"
	HoldExpiredQueue      = "booking.hold.expired"
)

// BookingConfirmedEvent is published once a booking flips to paid. The
// notification worker resolves the user, show and movie itself.
type BookingConfirmedEvent struct {
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	ShowID      string    `json:"show_id"`
	Seats       []string  `json:"seats"`
	Amount      int64     `json:"amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// HoldExpiryEvent asks the reaper to look at a booking once its hold window passed.
type HoldExpiryEvent struct {
	BookingID string    `json:"booking_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ShowAddedEvent announces newly scheduled shows of a movie.
type ShowAddedEvent struct {
	MovieID    string    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	ShowCount  int       `json:"show_count"`
	AddedAt    time.Time `json:"added_at"`
}
