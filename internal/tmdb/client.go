// Package tmdb is a small client for the TMDB v3 REST API, covering the
// endpoints needed to schedule shows: now playing, details, credits and videos.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinego/internal/model"
)

const (
	imageBase   = "https://image.tmdb.org/t/p/w500"
	maxCast     = 12
	youtubeBase = "https://www.youtube.com/watch?v="
)

var (
	ErrNotConfigured = errors.New("tmdb: api key not configured")
	ErrNotFound      = errors.New("tmdb: movie not found")
)

// Client calls TMDB. Keys starting with "ey" are v4 read tokens sent as a
// bearer header; anything else is a v3 key sent as the api_key parameter.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client. A nil hc uses a client with a 10s timeout.
func New(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: hc}
}

// NowPlayingMovie is one entry of the now playing list.
type NowPlayingMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	PosterPath  string  `json:"poster_path"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Details struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	Tagline          string  `json:"tagline"`
	Genres           []Genre `json:"genres"`
	VoteAverage      float64 `json:"vote_average"`
	Runtime          int     `json:"runtime"`
}

type Cast struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	Cast []Cast `json:"cast"`
}

type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type Videos struct {
	Results []Video `json:"results"`
}

// TrailerURL returns the first YouTube trailer-like video, or "".
func (v *Videos) TrailerURL() string {
	if v == nil {
		return ""
	}
	for _, vid := range v.Results {
		if vid.Site != "YouTube" || vid.Key == "" {
			continue
		}
		switch vid.Type {
		case "Trailer", "Teaser", "Clip", "Featurette":
			return youtubeBase + vid.Key
		}
	}
	return ""
}

// NowPlaying returns the first page of now playing movies.
func (c *Client) NowPlaying(ctx context.Context) ([]NowPlayingMovie, error) {
	var out struct {
		Results []NowPlayingMovie `json:"results"`
	}
	if err := c.get(ctx, "/movie/now_playing", url.Values{"page": {"1"}}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Details fetches /movie/{id}.
func (c *Client) Details(ctx context.Context, id int64) (*Details, error) {
	var d Details
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Credits(ctx context.Context, id int64) (*Credits, error) {
	var cr Credits
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil, &cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

func (c *Client) Videos(ctx context.Context, id int64) (*Videos, error) {
	var v Videos
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// FetchMovie loads details, credits and videos concurrently and maps them
// onto a Movie ready to upsert. Details are required; credits and videos
// failures leave the cast or trailer empty.
func (c *Client) FetchMovie(ctx context.Context, id int64) (*model.Movie, error) {
	var (
		d  *Details
		cr *Credits
		v  *Videos
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d, err = c.Details(gctx, id)
		return err
	})
	g.Go(func() error {
		cr, _ = c.Credits(gctx, id)
		return nil
	})
	g.Go(func() error {
		v, _ = c.Videos(gctx, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return toMovie(d, cr, v), nil
}

func toMovie(d *Details, cr *Credits, v *Videos) *model.Movie {
	title := d.Title
	if title == "" {
		title = d.OriginalTitle
	}
	if title == "" {
		title = "Untitled"
	}
	m := &model.Movie{
		TMDBID:           d.ID,
		Title:            title,
		Overview:         d.Overview,
		PosterPath:       imageURL(d.PosterPath),
		BackdropPath:     imageURL(d.BackdropPath),
		ReleaseDate:      d.ReleaseDate,
		OriginalLanguage: d.OriginalLanguage,
		Tagline:          d.Tagline,
		Genres:           make([]string, 0, len(d.Genres)),
		Casts:            []model.CastMember{},
		VoteAverage:      d.VoteAverage,
		Runtime:          d.Runtime,
		TrailerURL:       v.TrailerURL(),
	}
	for _, g := range d.Genres {
		m.Genres = append(m.Genres, g.Name)
	}
	if cr != nil {
		for i, c := range cr.Cast {
			if i == maxCast {
				break
			}
			m.Casts = append(m.Casts, model.CastMember{Name: c.Name, ProfilePath: imageURL(c.ProfilePath)})
		}
	}
	return m
}

// ImageURL expands a TMDB image path to a full poster URL.
func ImageURL(path string) string { return imageURL(path) }

func imageURL(path string) string {
	if path == "" {
		return ""
	}
	return imageBase + path
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("language", "en-US")

	bearer := strings.HasPrefix(c.apiKey, "ey")
	if !bearer {
		q.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tmdb %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb %s: decode: %w", path, err)
	}
	return nil
}
