package model

import "time"

// Movie caches the metadata pulled from TMDB when an admin first schedules it.
type Movie struct {
	ID               string       `json:"id"`                // movies.id
	TMDBID           int64        `json:"tmdbId"`            // movies.tmdb_id
	Title            string       `json:"title"`             // movies.title
	Overview         string       `json:"overview"`          // movies.overview
	PosterPath       string       `json:"poster_path"`       // movies.poster_path
	BackdropPath     string       `json:"backdrop_path"`     // movies.backdrop_path
	ReleaseDate      string       `json:"release_date"`      // movies.release_date (YYYY-MM-DD)
	OriginalLanguage string       `json:"original_language"` // movies.original_language
	Tagline          string       `json:"tagline"`           // movies.tagline
	Genres           []string     `json:"genres"`            // movies.genres (JSON)
	Casts            []CastMember `json:"casts"`             // movies.casts (JSON)
	VoteAverage      float64      `json:"vote_average"`      // movies.vote_average
	Runtime          int          `json:"runtime"`           // movies.runtime, minutes
	TrailerURL       string       `json:"trailer_url"`       // movies.trailer_url
	CreatedAt        time.Time    `json:"createdAt"`         // movies.created_at
}

// CastMember is one credited actor.
type CastMember struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}
