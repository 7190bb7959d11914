package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
	"github.com/iliyamo/cinego/internal/tmdb"
)

const nowPlayingLimit = 10

var ErrUpstream = errors.New("upstream service error")

// MovieSource is the external movie metadata provider.
type MovieSource interface {
	NowPlaying(ctx context.Context) ([]tmdb.NowPlayingMovie, error)
	FetchMovie(ctx context.Context, tmdbID int64) (*model.Movie, error)
}

type CatalogMovieStore interface {
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	GetByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error)
	Upsert(ctx context.Context, m *model.Movie) error
	ListWithUpcomingShows(ctx context.Context, from time.Time) ([]model.Movie, error)
}

type CatalogShowStore interface {
	CreateMany(ctx context.Context, shows []*model.Show) (int, error)
	ListWithMovies(ctx context.Context, f repository.ShowFilter) ([]model.ShowWithMovie, error)
}

// CatalogService schedules shows and answers the browsing endpoints.
type CatalogService struct {
	source    MovieSource
	movies    CatalogMovieStore
	shows     CatalogShowStore
	announcer ShowAnnouncer
	loc       *time.Location
	clock     Clock
	log       *logger.Logger
}

// NewCatalogService builds the catalog. loc is the zone show slots are given in.
func NewCatalogService(source MovieSource, movies CatalogMovieStore, shows CatalogShowStore, announcer ShowAnnouncer,
	loc *time.Location, clock Clock, log *logger.Logger) *CatalogService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock
	}
	return &CatalogService{
		source:    source,
		movies:    movies,
		shows:     shows,
		announcer: announcer,
		loc:       loc,
		clock:     clock,
		log:       log.WithComponent("catalog"),
	}
}

// NowPlayingItem is a TMDB now playing entry as shown to admins.
type NowPlayingItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Poster      string  `json:"poster"`
}

// NowPlaying lists TMDB now-playing movies with full image URLs.
func (s *CatalogService) NowPlaying(ctx context.Context) ([]NowPlayingItem, error) {
	list, err := s.source.NowPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: now playing: %v", ErrUpstream, err)
	}
	if len(list) > nowPlayingLimit {
		list = list[:nowPlayingLimit]
	}
	out := make([]NowPlayingItem, 0, len(list))
	for _, m := range list {
		out = append(out, NowPlayingItem{
			ID: m.ID, Title: m.Title, VoteAverage: m.VoteAverage, VoteCount: m.VoteCount, Poster: tmdb.ImageURL(m.PosterPath),
		})
	}
	return out, nil
}

// ShowSlot is one calendar date with the local start times on it.
type ShowSlot struct {
	Date  string   `json:"date" validate:"required"`
	Time  string   `json:"time,omitempty"`
	Times []string `json:"times,omitempty"`
}

type AddShowsRequest struct {
	TMDBID int64
	Price  int64
	Slots  []ShowSlot
}

type AddShowsResult struct {
	Movie   *model.Movie `json:"movie"`
	Created int          `json:"created"`
	Skipped int          `json:"skipped"`
}

// AddShows refreshes the movie from TMDB and schedules one show per slot
// time. Existing shows at the same start time are skipped.
func (s *CatalogService) AddShows(ctx context.Context, req AddShowsRequest) (*AddShowsResult, error) {
	if req.TMDBID <= 0 {
		return nil, validationf("movieId is required")
	}
	if req.Price <= 0 {
		return nil, validationf("showPrice must be positive")
	}
	starts, err := s.slotTimes(req.Slots)
	if err != nil {
		return nil, err
	}

	movie, err := s.source.FetchMovie(ctx, req.TMDBID)
	if errors.Is(err, tmdb.ErrNotFound) {
		return nil, fmt.Errorf("tmdb movie %d: %w", req.TMDBID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch movie: %v", ErrUpstream, err)
	}
	if err := s.movies.Upsert(ctx, movie); err != nil {
		return nil, fmt.Errorf("save movie: %w", err)
	}

	now := s.clock.Now().UTC()
	shows := make([]*model.Show, 0, len(starts))
	for _, st := range starts {
		shows = append(shows, &model.Show{
			ID:            uuid.NewString(),
			MovieID:       movie.ID,
			StartTime:     st.UTC(),
			Price:         req.Price,
			OccupiedSeats: model.SeatSet{},
			CreatedAt:     now,
		})
	}
	created, err := s.shows.CreateMany(ctx, shows)
	if err != nil {
		return nil, fmt.Errorf("create shows: %w", err)
	}

	log := s.log.WithFields(map[string]any{"movie_id": movie.ID, "tmdb_id": movie.TMDBID})
	log.Info("shows scheduled", "created", created, "skipped", len(shows)-created)
	if created > 0 {
		ev := queue.ShowAddedEvent{MovieID: movie.ID, MovieTitle: movie.Title, ShowCount: created, AddedAt: now}
		if err := s.announcer.PublishShowAdded(ctx, ev); err != nil {
			log.WithError(err).Warn("publish show announcement failed")
		}
	}
	return &AddShowsResult{Movie: movie, Created: created, Skipped: len(shows) - created}, nil
}

func (s *CatalogService) slotTimes(slots []ShowSlot) ([]time.Time, error) {
	if len(slots) == 0 {
		return nil, validationf("showsInput must not be empty")
	}
	seen := map[int64]bool{}
	var out []time.Time
	for _, slot := range slots {
		times := slot.Times
		if slot.Time != "" {
			times = append([]string{slot.Time}, times...)
		}
		if len(times) == 0 {
			return nil, validationf("no times given for %s", slot.Date)
		}
		for _, tm := range times {
			st, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(slot.Date)+" "+strings.TrimSpace(tm), s.loc)
			if err != nil {
				return nil, validationf("invalid show time %q %q", slot.Date, tm)
			}
			if !seen[st.Unix()] {
				seen[st.Unix()] = true
				out = append(out, st)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// ListMovies returns the movies that have at least one upcoming show.
func (s *CatalogService) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return s.movies.ListWithUpcomingShows(ctx, s.clock.Now())
}

// ShowTime is one bookable screening of a movie.
type ShowTime struct {
	Time   time.Time `json:"time"`
	ShowID string    `json:"showId"`
	Price  int64     `json:"showPrice"`
}

type MovieDetail struct {
	Movie    *model.Movie          `json:"movie"`
	DateTime map[string][]ShowTime `json:"dateTime"`
}

// MovieWithShows resolves id as a movie id, falling back to a TMDB id, and
// groups its upcoming shows by local date.
func (s *CatalogService) MovieWithShows(ctx context.Context, id string) (*MovieDetail, error) {
	m, err := s.movies.GetByID(ctx, id)
	if errors.Is(err, repository.ErrMovieNotFound) {
		if tmdbID, perr := strconv.ParseInt(id, 10, 64); perr == nil {
			m, err = s.movies.GetByTMDBID(ctx, tmdbID)
		}
	}
	if errors.Is(err, repository.ErrMovieNotFound) {
		return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	shows, err := s.shows.ListWithMovies(ctx, repository.ShowFilter{From: s.clock.Now(), MovieID: m.ID})
	if err != nil {
		return nil, err
	}
	detail := &MovieDetail{Movie: m, DateTime: map[string][]ShowTime{}}
	for _, sh := range shows {
		date := sh.StartTime.In(s.loc).Format("2006-01-02")
		detail.DateTime[date] = append(detail.DateTime[date], ShowTime{Time: sh.StartTime, ShowID: sh.ID, Price: sh.Price})
	}
	return detail, nil
}

type SearchHit struct {
	ShowID       string      `json:"showId"`
	ShowDateTime time.Time   `json:"showDateTime"`
	ShowPrice    int64       `json:"showPrice"`
	Movie        model.Movie `json:"movie"`
}

type SearchResult struct {
	Count   int         `json:"count"`
	Applied SearchQuery `json:"applied"`
	Results []SearchHit `json:"results"`
}

// Search runs a free-text show search.
func (s *CatalogService) Search(ctx context.Context, q string) (*SearchResult, error) {
	sq := ParseSearchQuery(q, s.clock.Now().In(s.loc))
	f := repository.ShowFilter{From: sq.From, To: sq.To}
	if sq.MaxPrice != nil {
		f.MaxPrice = *sq.MaxPrice
	}
	shows, err := s.shows.ListWithMovies(ctx, f)
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Applied: sq, Results: []SearchHit{}}
	for _, sh := range shows {
		if !sq.Matches(sh, s.loc) {
			continue
		}
		res.Results = append(res.Results, SearchHit{ShowID: sh.ID, ShowDateTime: sh.StartTime, ShowPrice: sh.Price, Movie: sh.Movie})
	}
	res.Count = len(res.Results)
	return res, nil
}
