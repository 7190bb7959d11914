package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/service"
)

type CatalogAPI interface {
	NowPlaying(ctx context.Context) ([]service.NowPlayingItem, error)
	AddShows(ctx context.Context, req service.AddShowsRequest) (*service.AddShowsResult, error)
	ListMovies(ctx context.Context) ([]model.Movie, error)
	MovieWithShows(ctx context.Context, id string) (*service.MovieDetail, error)
	Search(ctx context.Context, q string) (*service.SearchResult, error)
}

// CachePurger drops cached catalog responses.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// CatalogHandler serves movie browsing, search and show scheduling.
type CatalogHandler struct {
	Catalog CatalogAPI
	Cache   CachePurger
	Log     *logger.Logger
}

// NewCatalogHandler builds the catalog endpoints. cache may be nil.
func NewCatalogHandler(catalog CatalogAPI, cache CachePurger, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Cache: cache, Log: log.WithComponent("catalog-http")}
}

// showTimes accepts "time": "18:30" as well as "time": ["18:30", "21:00"].
type showTimes []string

func (t *showTimes) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = showTimes{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

type showSlotReq struct {
	Date  string    `json:"date" validate:"required"`
	Time  showTimes `json:"time"`
	Times []string  `json:"times"`
}

type addShowsReq struct {
	MovieID    int64         `json:"movieId" validate:"required,gt=0"`
	ShowPrice  int64         `json:"showPrice" validate:"required,gt=0"`
	ShowsInput []showSlotReq `json:"showsInput" validate:"required,min=1,dive"`
}

// NowPlaying lists TMDB now-playing movies for the admin show form.
func (h *CatalogHandler) NowPlaying(c echo.Context) error {
	list, err := h.Catalog.NowPlaying(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": list})
}

// AddShows schedules shows of a TMDB movie.
func (h *CatalogHandler) AddShows(c echo.Context) error {
	var req addShowsReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	slots := make([]service.ShowSlot, 0, len(req.ShowsInput))
	for _, s := range req.ShowsInput {
		slots = append(slots, service.ShowSlot{Date: s.Date, Times: append([]string(s.Time), s.Times...)})
	}
	res, err := h.Catalog.AddShows(c.Request().Context(), service.AddShowsRequest{
		TMDBID: req.MovieID,
		Price:  req.ShowPrice,
		Slots:  slots,
	})
	if err != nil {
		return respond(c, h.Log, err)
	}
	if res.Created > 0 && h.Cache != nil {
		if err := h.Cache.Purge(c.Request().Context()); err != nil {
			h.Log.WithError(err).Warn("catalog cache purge failed")
		}
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMovies lists movies that have upcoming shows.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.Catalog.ListMovies(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": movies})
}

// Movie returns one movie with its upcoming shows grouped by date.
func (h *CatalogHandler) Movie(c echo.Context) error {
	detail, err := h.Catalog.MovieWithShows(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// Search answers GET /v1/shows/search?q=...
func (h *CatalogHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	res, err := h.Catalog.Search(c.Request().Context(), q)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}
