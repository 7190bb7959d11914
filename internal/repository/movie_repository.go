package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinego/internal/model"
)

// MovieRepo persists the TMDB metadata cache.
type MovieRepo struct{ db *sql.DB }

// NewMovieRepo returns a movie store over db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	return r.getOne(ctx, `SELECT `+qualify("m", movieCols)+` FROM movies m WHERE m.id = ?`, id)
}

// GetByTMDBID returns ErrMovieNotFound for movies never imported.
func (r *MovieRepo) GetByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	return r.getOne(ctx, `SELECT `+qualify("m", movieCols)+` FROM movies m WHERE m.tmdb_id = ?`, tmdbID)
}

func (r *MovieRepo) getOne(ctx context.Context, q string, arg any) (*model.Movie, error) {
	var row movieRow
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	m, err := row.result()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert inserts the movie or refreshes the metadata of the row with the
// same TMDB id. m.ID is set to the stored id either way.
func (r *MovieRepo) Upsert(ctx context.Context, m *model.Movie) error {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return err
	}
	casts, err := json.Marshal(m.Casts)
	if err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	const q = `INSERT INTO movies
		(id, tmdb_id, title, overview, poster_path, backdrop_path, release_date, original_language,
		 tagline, genres, casts, vote_average, runtime, trailer_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		 title = VALUES(title), overview = VALUES(overview), poster_path = VALUES(poster_path),
		 backdrop_path = VALUES(backdrop_path), release_date = VALUES(release_date),
		 original_language = VALUES(original_language), tagline = VALUES(tagline),
		 genres = VALUES(genres), casts = VALUES(casts), vote_average = VALUES(vote_average),
		 runtime = VALUES(runtime), trailer_url = VALUES(trailer_url)`
	if _, err := r.db.ExecContext(ctx, q,
		m.ID, m.TMDBID, m.Title, m.Overview, m.PosterPath, m.BackdropPath, m.ReleaseDate, m.OriginalLanguage,
		m.Tagline, genres, casts, m.VoteAverage, m.Runtime, m.TrailerURL,
	); err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, `SELECT id FROM movies WHERE tmdb_id = ?`, m.TMDBID).Scan(&m.ID)
}

// ListWithUpcomingShows returns each movie that has at least one show
// starting at or after from.
func (r *MovieRepo) ListWithUpcomingShows(ctx context.Context, from time.Time) ([]model.Movie, error) {
	q := `SELECT ` + qualify("m", movieCols) + ` FROM movies m
		WHERE m.id IN (SELECT s.movie_id FROM shows s WHERE s.start_time >= ?)
		ORDER BY m.created_at DESC`
	return r.list(ctx, q, from.UTC())
}

// ListByIDs returns the movies among ids that exist, in no particular order.
func (r *MovieRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Movie, error) {
	if len(ids) == 0 {
		return []model.Movie{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + qualify("m", movieCols) + ` FROM movies m WHERE m.id IN (` + placeholders(len(ids)) + `)`
	return r.list(ctx, q, args...)
}

func (r *MovieRepo) list(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0)
	for rows.Next() {
		var row movieRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, err
		}
		m, err := row.result()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
