package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/model"
)

type FavoritesAPI interface {
	Favorites(ctx context.Context, userID string) ([]model.Movie, error)
	ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error)
}

type UserHandler struct {
	Users FavoritesAPI
	Log   *logger.Logger
}

// NewUserHandler builds the favorites endpoints.
func NewUserHandler(u FavoritesAPI, log *logger.Logger) *UserHandler {
	return &UserHandler{Users: u, Log: log.WithComponent("user-http")}
}

type toggleFavoriteReq struct {
	MovieID string `json:"movieId" validate:"required"`
}

func (h *UserHandler) Favorites(c echo.Context) error {
	id, _ := middleware.CurrentIdentity(c)
	movies, err := h.Users.Favorites(c.Request().Context(), id.UserID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": movies})
}

// ToggleFavorite adds or removes the posted movie id.
func (h *UserHandler) ToggleFavorite(c echo.Context) error {
	id, _ := middleware.CurrentIdentity(c)
	var req toggleFavoriteReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	fav, err := h.Users.ToggleFavorite(c.Request().Context(), id.UserID, req.MovieID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	msg := "Favorite removed"
	if fav {
		msg = "Favorite added"
	}
	return c.JSON(http.StatusOK, echo.Map{"favorite": fav, "message": msg})
}
