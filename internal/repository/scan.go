package repository

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/cinego/internal/model"
)

// qualify prefixes every column with a table alias.
func qualify(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

var showCols = []string{"id", "movie_id", "start_time", "price", "occupied_seats", "version", "created_at"}

// showRow collects a shows row before the seat ledger is normalized.
type showRow struct {
	show  model.Show
	seats []byte
}

func (r *showRow) dest() []any {
	return []any{&r.show.ID, &r.show.MovieID, &r.show.StartTime, &r.show.Price, &r.seats, &r.show.Version, &r.show.CreatedAt}
}

func (r *showRow) result() (model.Show, error) {
	set, err := model.ParseSeatSet(r.seats)
	if err != nil {
		return model.Show{}, err
	}
	r.show.OccupiedSeats = set
	return r.show, nil
}

var movieCols = []string{"id", "tmdb_id", "title", "overview", "poster_path", "backdrop_path", "release_date",
	"original_language", "tagline", "genres", "casts", "vote_average", "runtime", "trailer_url", "created_at"}

type movieRow struct {
	movie    model.Movie
	overview sql.NullString
	genres   []byte
	casts    []byte
}

func (r *movieRow) dest() []any {
	m := &r.movie
	return []any{&m.ID, &m.TMDBID, &m.Title, &r.overview, &m.PosterPath, &m.BackdropPath, &m.ReleaseDate,
		&m.OriginalLanguage, &m.Tagline, &r.genres, &r.casts, &m.VoteAverage, &m.Runtime, &m.TrailerURL, &m.CreatedAt}
}

func (r *movieRow) result() (model.Movie, error) {
	r.movie.Overview = r.overview.String
	if err := decodeJSON(r.genres, &r.movie.Genres); err != nil {
		return model.Movie{}, err
	}
	if err := decodeJSON(r.casts, &r.movie.Casts); err != nil {
		return model.Movie{}, err
	}
	return r.movie, nil
}

var bookingCols = []string{"id", "user_id", "show_id", "seat_ids", "amount", "is_paid", "payment_link", "session_id",
	"charge_amount", "charge_currency", "exchange_rate", "hold_expires_at", "created_at", "paid_at"}

type bookingRow struct {
	booking model.Booking
	seats   []byte
	link    sql.NullString
	session sql.NullString
	paidAt  sql.NullTime
}

func (r *bookingRow) dest() []any {
	b := &r.booking
	return []any{&b.ID, &b.UserID, &b.ShowID, &r.seats, &b.Amount, &b.Paid, &r.link, &r.session,
		&b.ChargeAmount, &b.ChargeCurrency, &b.ExchangeRate, &b.HoldExpiresAt, &b.CreatedAt, &r.paidAt}
}

func (r *bookingRow) result() (model.Booking, error) {
	b := r.booking
	if err := decodeJSON(r.seats, &b.SeatIDs); err != nil {
		return model.Booking{}, err
	}
	if r.link.Valid {
		b.PaymentLink = &r.link.String
	}
	if r.session.Valid {
		b.SessionID = &r.session.String
	}
	if r.paidAt.Valid {
		t := r.paidAt.Time
		b.PaidAt = &t
	}
	return b, nil
}
