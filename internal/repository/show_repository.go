package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinego/internal/model"
)

// ShowRepo manages persistence for shows and their seat ledgers.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo returns a show store over db.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *ShowRepo) DB() *sql.DB { return r.db }

// GetByID loads a show with its normalized seat ledger.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	q := `SELECT ` + qualify("s", showCols) + ` FROM shows s WHERE s.id = ?`
	var row showRow
	if err := r.db.QueryRowContext(ctx, q, id).Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	s, err := row.result()
	if err != nil {
		return nil, fmt.Errorf("show %s: %w", id, err)
	}
	return &s, nil
}

// CreateMany inserts shows in one transaction. A show that already exists
// for the same movie and start time is skipped. It returns how many rows
// were actually inserted.
func (r *ShowRepo) CreateMany(ctx context.Context, shows []*model.Show) (int, error) {
	if len(shows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT IGNORE INTO shows (id, movie_id, start_time, price, occupied_seats, version) VALUES (?, ?, ?, ?, ?, 0)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, s := range shows {
		if s.OccupiedSeats == nil {
			s.OccupiedSeats = model.SeatSet{}
		}
		seats, err := json.Marshal(s.OccupiedSeats)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, s.ID, s.MovieID, s.StartTime.UTC(), s.Price, seats)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return inserted, nil
}

// UpdateSeats writes a new seat ledger only if the stored version still
// equals version, bumping it on success. A stale version yields
// ErrVersionConflict; a vanished show yields ErrShowNotFound.
func (r *ShowRepo) UpdateSeats(ctx context.Context, id string, version int64, seats model.SeatSet) error {
	return updateSeats(ctx, r.db, id, version, seats)
}

func updateSeats(ctx context.Context, q execQuerier, id string, version int64, seats model.SeatSet) error {
	payload, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		`UPDATE shows SET occupied_seats = ?, version = version + 1 WHERE id = ? AND version = ?`,
		payload, id, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}

// ShowFilter narrows ListWithMovies. Zero values disable a condition.
type ShowFilter struct {
	From     time.Time
	To       time.Time
	MovieID  string
	MaxPrice int64
}

// ListWithMovies returns shows joined with their movie, ordered by start time.
func (r *ShowRepo) ListWithMovies(ctx context.Context, f ShowFilter) ([]model.ShowWithMovie, error) {
	q := `SELECT ` + qualify("s", showCols) + `, ` + qualify("m", movieCols) + `
		FROM shows s
		JOIN movies m ON m.id = s.movie_id
		WHERE 1=1`
	var args []any
	if !f.From.IsZero() {
		q += ` AND s.start_time >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		q += ` AND s.start_time <= ?`
		args = append(args, f.To.UTC())
	}
	if f.MovieID != "" {
		q += ` AND s.movie_id = ?`
		args = append(args, f.MovieID)
	}
	if f.MaxPrice > 0 {
		q += ` AND s.price <= ?`
		args = append(args, f.MaxPrice)
	}
	q += ` ORDER BY s.start_time ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ShowWithMovie, 0)
	for rows.Next() {
		var sr showRow
		var mr movieRow
		if err := rows.Scan(append(sr.dest(), mr.dest()...)...); err != nil {
			return nil, err
		}
		s, err := sr.result()
		if err != nil {
			return nil, err
		}
		m, err := mr.result()
		if err != nil {
			return nil, err
		}
		out = append(out, model.ShowWithMovie{Show: s, Movie: m})
	}
	return out, rows.Err()
}

// CountUpcoming counts shows starting at or after from.
func (r *ShowRepo) CountUpcoming(ctx context.Context, from time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows WHERE start_time >= ?`, from.UTC()).Scan(&n)
	return n, err
}

// DeleteStartedBefore purges shows whose start time is older than cutoff.
func (r *ShowRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shows WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
