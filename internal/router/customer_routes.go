package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/model"
)

// RegisterCustomer registers the signed-in user's endpoints. Admins can
// book too.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/bookings", d.Bookings.Create, d.RateLimit)
	g.GET("/bookings", d.Bookings.Mine)

	g.GET("/favorites", d.Users.Favorites)
	g.POST("/favorites", d.Users.ToggleFavorite)
}
