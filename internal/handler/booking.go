package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/service"
)

type BookingAPI interface {
	Hold(ctx context.Context, req service.HoldRequest) (*service.HoldResult, error)
	OccupiedSeats(ctx context.Context, showID string) ([]string, error)
	UserBookings(ctx context.Context, userID string) ([]model.BookingView, error)
}

// BookingHandler serves seat availability and the hold-and-checkout endpoint.
type BookingHandler struct {
	Bookings BookingAPI
	Log      *logger.Logger
}

// NewBookingHandler builds the booking endpoints.
func NewBookingHandler(b BookingAPI, log *logger.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Log: log.WithComponent("booking-http")}
}

type createBookingReq struct {
	ShowID  string   `json:"showId" validate:"required"`
	SeatIDs []string `json:"seatIds" validate:"required,min=1,dive,required"`
}

// Create holds seats and answers with the checkout redirect.
func (h *BookingHandler) Create(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	res, err := h.Bookings.Hold(c.Request().Context(), service.HoldRequest{
		UserID:  id.UserID,
		Email:   id.Email,
		ShowID:  req.ShowID,
		SeatIDs: req.SeatIDs,
	})
	if err != nil {
		return respond(c, h.Log.WithUserID(id.UserID), err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Mine lists the caller's bookings, newest first.
func (h *BookingHandler) Mine(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.UserBookings(c.Request().Context(), id.UserID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// OccupiedSeats returns the seat ids currently held or sold for a show.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	seats, err := h.Bookings.OccupiedSeats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showId": c.Param("id"), "seatIds": seats})
}
