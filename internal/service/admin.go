package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/repository"
)

type AdminUserStore interface {
	ListByRole(ctx context.Context, role string) ([]model.User, error)
	SetRole(ctx context.Context, email, role string) error
	Count(ctx context.Context) (int64, error)
}

type AdminBookingStore interface {
	ListAll(ctx context.Context) ([]model.BookingView, error)
	PaidSummary(ctx context.Context) (count int64, revenue int64, err error)
}

type AdminShowStore interface {
	ListWithMovies(ctx context.Context, f repository.ShowFilter) ([]model.ShowWithMovie, error)
}

// AdminService backs the admin panel. Owners are configured by email and
// are the only ones allowed to change roles.
type AdminService struct {
	users    AdminUserStore
	bookings AdminBookingStore
	shows    AdminShowStore
	owners   []string
	clock    Clock
}

// NewAdminService builds the admin service. owners must be lower case.
func NewAdminService(users AdminUserStore, bookings AdminBookingStore, shows AdminShowStore, owners []string, clock Clock) *AdminService {
	if clock == nil {
		clock = SystemClock
	}
	return &AdminService{users: users, bookings: bookings, shows: shows, owners: owners, clock: clock}
}

// IsOwner reports whether email is a configured owner.
func (s *AdminService) IsOwner(email string) bool {
	return slices.Contains(s.owners, strings.ToLower(strings.TrimSpace(email)))
}

type Dashboard struct {
	TotalBookings int64                 `json:"totalBookings"`
	TotalRevenue  int64                 `json:"totalRevenue"`
	ActiveShows   []model.ShowWithMovie `json:"activeShows"`
	TotalUsers    int64                 `json:"totalUser"`
}

// Dashboard aggregates paid bookings, upcoming shows and users.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	count, revenue, err := s.bookings.PaidSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("paid summary: %w", err)
	}
	shows, err := s.UpcomingShows(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &Dashboard{TotalBookings: count, TotalRevenue: revenue, ActiveShows: shows, TotalUsers: users}, nil
}

// UpcomingShows lists every show that has not started yet.
func (s *AdminService) UpcomingShows(ctx context.Context) ([]model.ShowWithMovie, error) {
	return s.shows.ListWithMovies(ctx, repository.ShowFilter{From: s.clock.Now()})
}

// AllBookings lists every booking, newest first.
func (s *AdminService) AllBookings(ctx context.Context) ([]model.BookingView, error) {
	return s.bookings.ListAll(ctx)
}

// Admins lists users with the ADMIN role.
func (s *AdminService) Admins(ctx context.Context) ([]model.User, error) {
	return s.users.ListByRole(ctx, model.RoleAdmin)
}

// Grant gives the user with email the ADMIN role.
func (s *AdminService) Grant(ctx context.Context, email string) error {
	return s.setRole(ctx, email, model.RoleAdmin)
}

// Revoke demotes an admin back to customer. Owners cannot be demoted.
func (s *AdminService) Revoke(ctx context.Context, email string) error {
	if s.IsOwner(email) {
		return fmt.Errorf("%w: owners cannot be demoted", ErrForbidden)
	}
	return s.setRole(ctx, email, model.RoleCustomer)
}

func (s *AdminService) setRole(ctx context.Context, email, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return validationf("email is required")
	}
	err := s.users.SetRole(ctx, email, role)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return err
}

