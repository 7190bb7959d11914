// Package repository holds the MySQL data access layer. Sentinel errors
// defined here let services tell "missing" apart from "failed" and map
// each case onto the right response.
package repository

import "errors"

var (
	// ErrShowNotFound indicates that a show was not located in the DB.
	ErrShowNotFound = errors.New("show not found")
	// ErrBookingNotFound is returned for unknown or already deleted bookings.
	ErrBookingNotFound = errors.New("booking not found")
	ErrMovieNotFound   = errors.New("movie not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")

	// ErrVersionConflict means the show's seat ledger changed between the
	// read and the conditional write. Callers reload and retry.
	ErrVersionConflict = errors.New("show version conflict")
)
