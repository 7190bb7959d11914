// Package service holds the booking workflow and the catalog, user and
// admin use cases built on top of the repositories.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors handlers map onto HTTP statuses.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrSeatsUnavailable     = errors.New("seats unavailable")
	ErrLedgerBusy           = errors.New("seat ledger busy, try again")
	ErrProvider             = errors.New("payment provider error")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
	ErrForbidden            = errors.New("forbidden")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UnavailableError lists the requested seats that are already taken.
type UnavailableError struct {
	Seats []string
}

func (e *UnavailableError) Error() string {
	return "seats unavailable: " + strings.Join(e.Seats, ", ")
}

func (e *UnavailableError) Unwrap() error { return ErrSeatsUnavailable }

// ProviderError wraps a failure of the payment provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }
