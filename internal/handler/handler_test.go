package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/repository"
	"github.com/iliyamo/cinego/internal/service"
	"github.com/iliyamo/cinego/internal/utils"
)

const testSecret = "handler-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func call(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, id utils.Identity) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

type fakeBookings struct {
	lastHold service.HoldRequest
	holdErr  error
	occupied []string
}

func (f *fakeBookings) Hold(_ context.Context, req service.HoldRequest) (*service.HoldResult, error) {
	f.lastHold = req
	if f.holdErr != nil {
		return nil, f.holdErr
	}
	return &service.HoldResult{BookingID: "b1", RedirectURL: "https://pay/cs_1", Amount: 400,
		ExpiresAt: time.Date(2025, 3, 3, 18, 10, 0, 0, time.UTC)}, nil
}

func (f *fakeBookings) OccupiedSeats(_ context.Context, showID string) ([]string, error) {
	if showID == "" {
		return nil, fmt.Errorf("%w: showId is required", service.ErrValidation)
	}
	return f.occupied, nil
}

func (f *fakeBookings) UserBookings(context.Context, string) ([]model.BookingView, error) {
	return []model.BookingView{}, nil
}

func bookingServer(f *fakeBookings) *echo.Echo {
	e := newEcho()
	h := NewBookingHandler(f, logger.Discard())
	e.POST("/v1/bookings", h.Create, middleware.JWTAuth(testSecret))
	e.GET("/v1/bookings", h.Mine, middleware.JWTAuth(testSecret))
	e.GET("/v1/shows/:id/occupied-seats", h.OccupiedSeats)
	return e
}

func TestBookingHandler_Create(t *testing.T) {
	f := &fakeBookings{}
	e := bookingServer(f)
	auth := tokenFor(t, utils.Identity{UserID: "u1", Email: "ana@example.com", Role: model.RoleCustomer})

	rec := call(e, http.MethodPost, "/v1/bookings", `{"showId":"s1","seatIds":["A1","A2"]}`, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "b1", body["bookingId"])
	assert.Equal(t, "https://pay/cs_1", body["redirectUrl"])
	assert.Equal(t, "u1", f.lastHold.UserID)
	assert.Equal(t, "ana@example.com", f.lastHold.Email)
	assert.Equal(t, []string{"A1", "A2"}, f.lastHold.SeatIDs)

	rec = call(e, http.MethodPost, "/v1/bookings", `{"showId":"s1","seatIds":["A1","A2"]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/v1/bookings", `{"showId":"s1","seatIds":[]}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/v1/bookings", `{"showId":`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandler_CreateConflict(t *testing.T) {
	f := &fakeBookings{holdErr: &service.UnavailableError{Seats: []string{"A2"}}}
	e := bookingServer(f)
	auth := tokenFor(t, utils.Identity{UserID: "u2", Role: model.RoleCustomer})

	rec := call(e, http.MethodPost, "/v1/bookings", `{"showId":"s1","seatIds":["A2","A3"]}`, auth)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []any{"A2"}, decode(t, rec)["unavailable"])
}

func TestBookingHandler_OccupiedSeats(t *testing.T) {
	e := bookingServer(&fakeBookings{occupied: []string{"A1", "B5"}})
	rec := call(e, http.MethodGet, "/v1/shows/s1/occupied-seats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"A1", "B5"}, decode(t, rec)["seatIds"])
}

func TestRespond_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("show x: %w", service.ErrNotFound), http.StatusNotFound},
		{&service.UnavailableError{Seats: []string{"A1"}}, http.StatusConflict},
		{service.ErrLedgerBusy, http.StatusServiceUnavailable},
		{&service.ProviderError{Op: "create session", Err: errors.New("boom")}, http.StatusBadGateway},
		{fmt.Errorf("%w: tmdb", service.ErrUpstream), http.StatusBadGateway},
		{service.ErrInvalidSignature, http.StatusBadRequest},
		{service.ErrWebhookNotConfigured, http.StatusInternalServerError},
		{fmt.Errorf("%w: owners", service.ErrForbidden), http.StatusForbidden},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := echo.New()
		e.GET("/", func(c echo.Context) error { return respond(c, logger.Discard(), tc.err) })
		rec := call(e, http.MethodGet, "/", "", "")
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.NotContains(t, rec.Body.String(), "db exploded")
	}
}

type fakeProcessor struct {
	payload []byte
	sig     string
	err     error
}

func (f *fakeProcessor) Handle(_ context.Context, payload []byte, sig string) error {
	f.payload, f.sig = payload, sig
	return f.err
}

func TestWebhookHandler(t *testing.T) {
	p := &fakeProcessor{}
	e := echo.New()
	e.POST("/v1/webhooks/payment", NewWebhookHandler(p, logger.Discard()).Payment)

	raw := `{"id":"evt_1",  "type":"checkout.session.completed"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", strings.NewReader(raw))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, string(p.payload), "body reaches the verifier byte for byte")
	assert.Equal(t, "t=1,v1=abc", p.sig)

	p.err = service.ErrInvalidSignature
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/webhooks/payment", raw, "").Code)

	p.err = service.ErrWebhookNotConfigured
	assert.Equal(t, http.StatusInternalServerError, call(e, http.MethodPost, "/v1/webhooks/payment", raw, "").Code)
}

type fakeCatalog struct {
	req     service.AddShowsRequest
	created int
}

func (f *fakeCatalog) NowPlaying(context.Context) ([]service.NowPlayingItem, error) {
	return []service.NowPlayingItem{{ID: 1, Title: "Dune"}}, nil
}

func (f *fakeCatalog) AddShows(_ context.Context, req service.AddShowsRequest) (*service.AddShowsResult, error) {
	f.req = req
	return &service.AddShowsResult{Movie: &model.Movie{Title: "Dune"}, Created: f.created}, nil
}

func (f *fakeCatalog) ListMovies(context.Context) ([]model.Movie, error) {
	return []model.Movie{{ID: "m1"}}, nil
}

func (f *fakeCatalog) MovieWithShows(_ context.Context, id string) (*service.MovieDetail, error) {
	if id != "m1" {
		return nil, fmt.Errorf("movie %s: %w", id, service.ErrNotFound)
	}
	return &service.MovieDetail{Movie: &model.Movie{ID: "m1"}, DateTime: map[string][]service.ShowTime{}}, nil
}

func (f *fakeCatalog) Search(_ context.Context, q string) (*service.SearchResult, error) {
	return &service.SearchResult{Count: 0, Results: []service.SearchHit{}}, nil
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

func TestCatalogHandler_AddShowsAcceptsBothTimeShapes(t *testing.T) {
	f := &fakeCatalog{created: 3}
	purger := &countingPurger{}
	e := newEcho()
	h := NewCatalogHandler(f, purger, logger.Discard())
	e.POST("/v1/admin/shows", h.AddShows)

	body := `{"movieId":438631,"showPrice":250,"showsInput":[
		{"date":"2025-03-05","time":["18:30","21:00"]},
		{"date":"2025-03-06","time":"10:00"}]}`
	rec := call(e, http.MethodPost, "/v1/admin/shows", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(438631), f.req.TMDBID)
	assert.Equal(t, int64(250), f.req.Price)
	require.Len(t, f.req.Slots, 2)
	assert.Equal(t, []string{"18:30", "21:00"}, f.req.Slots[0].Times)
	assert.Equal(t, []string{"10:00"}, f.req.Slots[1].Times)
	assert.Equal(t, 1, purger.n)

	f.created = 0
	call(e, http.MethodPost, "/v1/admin/shows", body, "")
	assert.Equal(t, 1, purger.n, "no new shows, cache kept")

	rec = call(e, http.MethodPost, "/v1/admin/shows", `{"movieId":1,"showPrice":0,"showsInput":[{"date":"2025-03-05"}]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandler_Browse(t *testing.T) {
	e := newEcho()
	h := NewCatalogHandler(&fakeCatalog{}, nil, logger.Discard())
	e.GET("/v1/movies", h.ListMovies)
	e.GET("/v1/movies/:id", h.Movie)
	e.GET("/v1/shows/search", h.Search)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/movies", "", "").Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/movies/m1", "", "").Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/v1/movies/zz", "", "").Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/shows/search?q=dune", "", "").Code)
}

type fakeAccounts struct {
	users map[string]model.User
}

func (f *fakeAccounts) Create(_ context.Context, name, email, password, role string, cost int) (string, error) {
	for _, u := range f.users {
		if u.Email == email {
			return "", repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("u%d", len(f.users)+1)
	f.users[id] = model.User{ID: id, Name: name, Email: email, PasswordHash: hash, Role: role}
	return id, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAccounts) SetRole(_ context.Context, email, role string) error {
	for id, u := range f.users {
		if u.Email == email {
			u.Role = role
			f.users[id] = u
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type fakeTokens struct{ byHash map[string]string }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.byHash[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	uid, ok := f.byHash[hash]
	if !ok {
		return "", errors.New("no rows")
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.byHash, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	for h, uid := range f.byHash {
		if uid == userID {
			delete(f.byHash, h)
		}
	}
	return nil
}

func authServer() (*echo.Echo, *fakeAccounts, *fakeTokens) {
	accounts := &fakeAccounts{users: map[string]model.User{}}
	tokens := &fakeTokens{byHash: map[string]string{}}
	cfg := config.AuthConfig{JWTSecret: testSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4,
		AdminEmails: []string{"boss@example.com", "promoted@example.com"}}
	h := NewAuthHandler(cfg, accounts, tokens, logger.Discard())
	e := newEcho()
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.POST("/v1/auth/refresh", h.Refresh)
	e.POST("/v1/auth/logout", h.Logout)
	e.GET("/v1/me", h.Me, middleware.JWTAuth(testSecret))
	return e, accounts, tokens
}

func TestAuth_RegisterLoginRefreshLogout(t *testing.T) {
	e, _, tokens := authServer()

	rec := call(e, http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"Ana@Example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, model.RoleCustomer, user["role"])

	rec = call(e, http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"ana@example.com","password":"longenough"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(e, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"wrongpass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	rec = call(e, http.MethodGet, "/v1/me", "", "Bearer "+access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["user"].(map[string]any)["name"])

	rec = call(e, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode(t, rec)["refresh"].(map[string]any)["token"].(string)

	rec = call(e, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token is revoked")

	rec = call(e, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+rotated+`"}`, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, tokens.byHash, 1, "the registration session is still open")

	rec = call(e, http.MethodPost, "/v1/auth/logout", "", "Bearer "+access)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, tokens.byHash)
}

func TestAuth_RegisterRejectsWeakPasswordAndPromotesAdmins(t *testing.T) {
	e, accounts, _ := authServer()

	rec := call(e, http.MethodPost, "/v1/auth/register", `{"name":"Bo","email":"bo@example.com","password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/v1/auth/register", `{"name":"Boss","email":"boss@example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleAdmin, decode(t, rec)["user"].(map[string]any)["role"])

	id, err := accounts.Create(context.Background(), "Pat", "promoted@example.com", "longenough", model.RoleCustomer, 4)
	require.NoError(t, err)
	rec = call(e, http.MethodPost, "/v1/auth/login", `{"email":"promoted@example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleAdmin, decode(t, rec)["user"].(map[string]any)["role"])
	assert.Equal(t, model.RoleAdmin, accounts.users[id].Role)
}

type fakeAdmin struct{ granted, revoked []string }

func (f *fakeAdmin) IsOwner(email string) bool { return email == "owner@example.com" }
func (f *fakeAdmin) Dashboard(context.Context) (*service.Dashboard, error) {
	return &service.Dashboard{TotalBookings: 2}, nil
}
func (f *fakeAdmin) UpcomingShows(context.Context) ([]model.ShowWithMovie, error) { return nil, nil }
func (f *fakeAdmin) AllBookings(context.Context) ([]model.BookingView, error)      { return nil, nil }
func (f *fakeAdmin) Admins(context.Context) ([]model.User, error) {
	return []model.User{{ID: "u1", Email: "owner@example.com"}, {ID: "u2", Email: "staff@example.com"}}, nil
}
func (f *fakeAdmin) Grant(_ context.Context, email string) error {
	f.granted = append(f.granted, email)
	return nil
}
func (f *fakeAdmin) Revoke(_ context.Context, email string) error {
	if f.IsOwner(email) {
		return fmt.Errorf("%w: owners cannot be demoted", service.ErrForbidden)
	}
	f.revoked = append(f.revoked, email)
	return nil
}

func TestAdminHandler(t *testing.T) {
	f := &fakeAdmin{}
	h := NewAdminHandler(f, logger.Discard())
	e := newEcho()
	g := e.Group("/v1/admin", middleware.JWTAuth(testSecret))
	g.GET("/is-owner", h.IsOwner)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/admins", h.Admins)
	g.POST("/grant", h.Grant)
	g.POST("/revoke", h.Revoke)
	owner := tokenFor(t, utils.Identity{UserID: "u1", Email: "owner@example.com", Role: model.RoleAdmin})

	assert.Equal(t, true, decode(t, call(e, http.MethodGet, "/v1/admin/is-owner", "", owner))["isOwner"])

	rec := call(e, http.MethodGet, "/v1/admin/dashboard", "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalBookings":2`)

	rec = call(e, http.MethodGet, "/v1/admin/admins", "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"owner":true`)

	assert.Equal(t, http.StatusOK, call(e, http.MethodPost, "/v1/admin/grant", `{"email":"fan@example.com"}`, owner).Code)
	assert.Equal(t, []string{"fan@example.com"}, f.granted)
	assert.Equal(t, http.StatusForbidden, call(e, http.MethodPost, "/v1/admin/revoke", `{"email":"owner@example.com"}`, owner).Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/admin/grant", `{"email":"not-an-email"}`, owner).Code)
}
