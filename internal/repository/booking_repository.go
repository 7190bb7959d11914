package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/cinego/internal/model"
)

// BookingRepo is the booking record store.
type BookingRepo struct{ db *sql.DB }

// NewBookingRepo returns a booking store over db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateHeld inserts the unpaid booking b and writes seats as the ledger of
// b.ShowID in one transaction. The ledger write is conditional on version,
// so a stale read fails with ErrVersionConflict and nothing is stored.
func (r *BookingRepo) CreateHeld(ctx context.Context, b *model.Booking, version int64, seats model.SeatSet) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := updateSeats(ctx, tx, b.ShowID, version, seats); err != nil {
			return err
		}
		return insertBooking(ctx, tx, b)
	})
}

// insertBooking writes b as unpaid. CreatedAt and HoldExpiresAt come from the caller's clock.
func insertBooking(ctx context.Context, q execQuerier, b *model.Booking) error {
	seats, err := json.Marshal(b.SeatIDs)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, show_id, seat_ids, amount, is_paid, charge_amount, charge_currency,
			exchange_rate, hold_expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.ShowID, seats, b.Amount, b.ChargeAmount, b.ChargeCurrency,
		b.ExchangeRate, b.HoldExpiresAt.UTC(), b.CreatedAt.UTC())
	return err
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var row bookingRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+qualify("b", bookingCols)+` FROM bookings b WHERE b.id = ?`, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	b, err := row.result()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SetPaymentSession stores the checkout session id and redirect URL.
func (r *BookingRepo) SetPaymentSession(ctx context.Context, id, sessionID, link string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET session_id = ?, payment_link = ? WHERE id = ?`, sessionID, link, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// MarkPaid flips an unpaid booking to paid and clears its payment link.
// It reports whether this call changed the row: a second confirmation
// returns (false, nil). Unknown ids return ErrBookingNotFound.
func (r *BookingRepo) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET is_paid = 1, payment_link = NULL, paid_at = ? WHERE id = ? AND is_paid = 0`,
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if err := r.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// DeleteUnpaid removes the booking only while it is still unpaid. It
// reports false when the booking is paid or already gone.
func (r *BookingRepo) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	return deleteUnpaid(ctx, r.db, id)
}

// ReleaseUnpaid deletes the booking if it is still unpaid and writes seats
// as its show's ledger at version, in one transaction. It reports false and
// changes nothing when the booking is paid or gone. A stale version rolls
// the delete back and yields ErrVersionConflict. A vanished show only
// drops the booking.
func (r *BookingRepo) ReleaseUnpaid(ctx context.Context, id, showID string, version int64, seats model.SeatSet) (bool, error) {
	var released bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		deleted, err := deleteUnpaid(ctx, tx, id)
		if err != nil || !deleted {
			return err
		}
		err = updateSeats(ctx, tx, showID, version, seats)
		if err != nil && !errors.Is(err, ErrShowNotFound) {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

func deleteUnpaid(ctx context.Context, q execQuerier, id string) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND is_paid = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListOverdueUnpaid returns ids of unpaid bookings whose hold expired before cutoff.
func (r *BookingRepo) ListOverdueUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM bookings WHERE is_paid = 0 AND hold_expires_at < ? ORDER BY hold_expires_at LIMIT ?`,
		cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCreatedBefore purges bookings older than cutoff, paid or not.
func (r *BookingRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByUser returns a user's bookings with show and movie, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingView, error) {
	return r.listViews(ctx, `WHERE b.user_id = ?`, userID)
}

// ListAll returns every booking with show, movie and owner, newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.BookingView, error) {
	return r.listViews(ctx, ``)
}

func (r *BookingRepo) listViews(ctx context.Context, where string, args ...any) ([]model.BookingView, error) {
	q := `SELECT ` + qualify("b", bookingCols) + `, ` + qualify("s", showCols) + `, ` + qualify("m", movieCols) + `,
			COALESCE(u.email, ''), COALESCE(u.name, '')
		FROM bookings b
		JOIN shows s ON s.id = b.show_id
		JOIN movies m ON m.id = s.movie_id
		LEFT JOIN users u ON u.id = b.user_id
		` + where + `
		ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BookingView, 0)
	for rows.Next() {
		var (
			br          bookingRow
			sr          showRow
			mr          movieRow
			email, name string
		)
		dest := append(append(br.dest(), sr.dest()...), mr.dest()...)
		dest = append(dest, &email, &name)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		b, err := br.result()
		if err != nil {
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
		out = append(out, model.BookingView{Booking: b, Show: s, Movie: m, UserEmail: email, UserName: name})
	}
	return out, rows.Err()
}

// PaidSummary returns the number of paid bookings and their total amount.
func (r *BookingRepo) PaidSummary(ctx context.Context) (count int64, revenue int64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM bookings WHERE is_paid = 1`).Scan(&count, &revenue)
	return count, revenue, err
}

func (r *BookingRepo) requireRow(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return r.exists(ctx, id)
}

func (r *BookingRepo) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	return err
}
