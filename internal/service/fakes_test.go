package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/payment"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 3, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memShows mimics ShowRepo including the version check on UpdateSeats.
type memShows struct {
	mu           sync.Mutex
	shows        map[string]*model.Show
	beforeUpdate func(id string)
	updates      int
}

func newMemShows(shows ...*model.Show) *memShows {
	m := &memShows{shows: map[string]*model.Show{}}
	for _, s := range shows {
		if s.OccupiedSeats == nil {
			s.OccupiedSeats = model.SeatSet{}
		}
		m.shows[s.ID] = s
	}
	return m
}

func (m *memShows) GetByID(_ context.Context, id string) (*model.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	cp := *s
	cp.OccupiedSeats = s.OccupiedSeats.Clone()
	return &cp, nil
}

func (m *memShows) UpdateSeats(_ context.Context, id string, version int64, seats model.SeatSet) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shows[id]
	if !ok {
		return repository.ErrShowNotFound
	}
	if s.Version != version {
		return repository.ErrVersionConflict
	}
	s.OccupiedSeats = seats.Clone()
	s.Version++
	m.updates++
	return nil
}

// occupyBehindBack simulates another writer claiming seats.
func (m *memShows) occupyBehindBack(id string, seats ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.shows[id]
	s.OccupiedSeats = s.OccupiedSeats.With(seats...)
	s.Version++
}

func (m *memShows) occupied(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows[id].OccupiedSeats.IDs()
}

func (m *memShows) setPrice(id string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows[id].Price = price
}

// memBookings shares its shows with the ledger so CreateHeld and
// ReleaseUnpaid behave like the repository's transactions.
type memBookings struct {
	mu                 sync.Mutex
	items              map[string]*model.Booking
	shows              *memShows
	createErr          error
	beforeDeleteUnpaid func(id string)
}

func newMemBookings(shows *memShows) *memBookings {
	return &memBookings{items: map[string]*model.Booking{}, shows: shows}
}

func (m *memBookings) CreateHeld(ctx context.Context, b *model.Booking, version int64, seats model.SeatSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if err := m.shows.UpdateSeats(ctx, b.ShowID, version, seats); err != nil {
		return err
	}
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) SetPaymentSession(_ context.Context, id, sessionID, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.SessionID, b.PaymentLink = &sessionID, &link
	return nil
}

func (m *memBookings) MarkPaid(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.Paid {
		return false, nil
	}
	b.Paid, b.PaymentLink, b.PaidAt = true, nil, &at
	return true, nil
}

func (m *memBookings) DeleteUnpaid(_ context.Context, id string) (bool, error) {
	if m.beforeDeleteUnpaid != nil {
		m.beforeDeleteUnpaid(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok || b.Paid {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memBookings) ReleaseUnpaid(ctx context.Context, id, showID string, version int64, seats model.SeatSet) (bool, error) {
	if m.beforeDeleteUnpaid != nil {
		m.beforeDeleteUnpaid(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok || b.Paid {
		return false, nil
	}
	err := m.shows.UpdateSeats(ctx, showID, version, seats)
	if err != nil && !errors.Is(err, repository.ErrShowNotFound) {
		return false, err
	}
	delete(m.items, id)
	return true, nil
}

func (m *memBookings) ListOverdueUnpaid(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, b := range m.items {
		if !b.Paid && b.HoldExpiresAt.Before(cutoff) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memBookings) ListByUser(_ context.Context, userID string) ([]model.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingView{}
	for _, b := range m.items {
		if b.UserID == userID {
			out = append(out, model.BookingView{Booking: *b})
		}
	}
	return out, nil
}

func (m *memBookings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memMovies struct {
	movies map[string]*model.Movie
}

func (m *memMovies) GetByID(_ context.Context, id string) (*model.Movie, error) {
	mv, ok := m.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	cp := *mv
	return &cp, nil
}

type fakeProvider struct {
	mu            sync.Mutex
	requests      []payment.SessionRequest
	createErr     error
	secretMissing bool
	events        map[string]*payment.Event
	byIntent      map[string]*payment.Session
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: map[string]*payment.Event{}, byIntent: map[string]*payment.Session{}}
}

func (p *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.createErr != nil {
		return nil, p.createErr
	}
	id := fmt.Sprintf("cs_%d", len(p.requests))
	return &payment.Session{ID: id, URL: "https://pay.test/" + id, Metadata: req.Metadata}, nil
}

func (p *fakeProvider) ParseEvent(_ []byte, signature string) (*payment.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.secretMissing {
		return nil, payment.ErrWebhookSecretMissing
	}
	ev, ok := p.events[signature]
	if !ok {
		return nil, payment.ErrInvalidSignature
	}
	cp := *ev
	return &cp, nil
}

func (p *fakeProvider) SessionByPaymentIntent(_ context.Context, pi string) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.byIntent[pi]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	return s, nil
}

// sign registers ev and returns the signature that verifies it.
func (p *fakeProvider) sign(ev *payment.Event) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	sig := fmt.Sprintf("sig-%d", len(p.events)+1)
	p.events[sig] = ev
	return sig
}

type fakeScheduler struct {
	mu     sync.Mutex
	ids    []string
	delays []time.Duration
	err    error
}

func (s *fakeScheduler) ScheduleHoldExpiry(_ context.Context, id string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	s.delays = append(s.delays, d)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	added     []queue.ShowAddedEvent
	err       error
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *fakePublisher) PublishShowAdded(_ context.Context, ev queue.ShowAddedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.added = append(p.added, ev)
	return nil
}

const (
	testShowID   = "show-1"
	testMovieID  = "movie-1"
	testHold     = 10 * time.Minute
	testGrace    = time.Minute
	testRate     = 86.0
	testCurrency = "usd"
)

// harness wires the booking workflow on in-memory stores.
type harness struct {
	clock     *fakeClock
	shows     *memShows
	bookings  *memBookings
	provider  *fakeProvider
	scheduler *fakeScheduler
	publisher *fakePublisher

	ledger    *SeatLedger
	booking   *BookingService
	confirmer *Confirmer
	reaper    *Reaper
}

func newHarness() *harness {
	log := logger.Discard()
	h := &harness{
		clock:     newFakeClock(),
		shows:     newMemShows(&model.Show{ID: testShowID, MovieID: testMovieID, Price: 200}),
		provider:  newFakeProvider(),
		scheduler: &fakeScheduler{},
		publisher: &fakePublisher{},
	}
	h.bookings = newMemBookings(h.shows)
	movies := &memMovies{movies: map[string]*model.Movie{testMovieID: {ID: testMovieID, Title: "Dune"}}}
	h.ledger = NewSeatLedger(h.shows, log)
	h.booking = NewBookingService(h.ledger, h.bookings, movies, h.provider, h.scheduler, BookingOptions{
		HoldWindow:   testHold,
		Currency:     testCurrency,
		ExchangeRate: testRate,
		SuccessURL:   "http://front/loading/my-bookings",
		CancelURL:    "http://front/my-bookings",
	}, h.clock, log)
	h.confirmer = NewConfirmer(h.provider, h.bookings, h.publisher, h.clock, log)
	h.reaper = NewReaper(h.bookings, h.ledger, testGrace, h.clock, log)
	return h
}

func (h *harness) hold(user string, seats ...string) (*HoldResult, error) {
	return h.booking.Hold(context.Background(), HoldRequest{UserID: user, Email: user + "@example.com", ShowID: testShowID, SeatIDs: seats})
}

// pay delivers a signed checkout.session.completed event for bookingID.
func (h *harness) pay(bookingID string) error {
	sig := h.provider.sign(&payment.Event{
		ID:       "evt_" + bookingID,
		Type:     payment.EventCheckoutCompleted,
		Metadata: map[string]string{payment.MetadataBookingID: bookingID},
	})
	return h.confirmer.Handle(context.Background(), []byte(`{}`), sig)
}
