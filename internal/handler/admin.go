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

type AdminAPI interface {
	IsOwner(email string) bool
	Dashboard(ctx context.Context) (*service.Dashboard, error)
	UpcomingShows(ctx context.Context) ([]model.ShowWithMovie, error)
	AllBookings(ctx context.Context) ([]model.BookingView, error)
	Admins(ctx context.Context) ([]model.User, error)
	Grant(ctx context.Context, email string) error
	Revoke(ctx context.Context, email string) error
}

// AdminHandler backs the admin panel and owner-only role management.
type AdminHandler struct {
	Admin AdminAPI
	Log   *logger.Logger
}

// NewAdminHandler wires the admin endpoints to the admin service.
func NewAdminHandler(a AdminAPI, log *logger.Logger) *AdminHandler {
	return &AdminHandler{Admin: a, Log: log.WithComponent("admin-http")}
}

type roleChangeReq struct {
	Email string `json:"email" validate:"required,email"`
}

// IsAdmin reports whether the caller has the ADMIN role.
func (h *AdminHandler) IsAdmin(c echo.Context) error {
	id, _ := middleware.CurrentIdentity(c)
	return c.JSON(http.StatusOK, echo.Map{"isAdmin": id.Role == model.RoleAdmin})
}

// IsOwner reports whether the caller may manage admins.
func (h *AdminHandler) IsOwner(c echo.Context) error {
	id, _ := middleware.CurrentIdentity(c)
	return c.JSON(http.StatusOK, echo.Map{"isOwner": h.Admin.IsOwner(id.Email)})
}

// Dashboard returns paid booking totals, active shows and the user count.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.Admin.Dashboard(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dashboardData": d})
}

func (h *AdminHandler) Shows(c echo.Context) error {
	shows, err := h.Admin.UpcomingShows(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

func (h *AdminHandler) Bookings(c echo.Context) error {
	list, err := h.Admin.AllBookings(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

type adminPart struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Owner bool   `json:"owner"`
}

func (h *AdminHandler) Admins(c echo.Context) error {
	users, err := h.Admin.Admins(c.Request().Context())
	if err != nil {
		return respond(c, h.Log, err)
	}
	out := make([]adminPart, 0, len(users))
	for _, u := range users {
		out = append(out, adminPart{ID: u.ID, Name: u.Name, Email: u.Email, Owner: h.Admin.IsOwner(u.Email)})
	}
	return c.JSON(http.StatusOK, echo.Map{"admins": out})
}

// Grant promotes the user with the posted email to ADMIN.
func (h *AdminHandler) Grant(c echo.Context) error {
	return h.changeRole(c, h.Admin.Grant, "admin granted")
}

// Revoke demotes an admin back to CUSTOMER.
func (h *AdminHandler) Revoke(c echo.Context) error {
	return h.changeRole(c, h.Admin.Revoke, "admin revoked")
}

func (h *AdminHandler) changeRole(c echo.Context, apply func(context.Context, string) error, msg string) error {
	var req roleChangeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := apply(c.Request().Context(), req.Email); err != nil {
		return respond(c, h.Log, err)
	}
	actor, _ := middleware.CurrentIdentity(c)
	h.Log.Info(msg, "target", req.Email, "by", actor.Email)
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
