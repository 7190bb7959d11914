package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/model"
)

// RegisterAdmin registers the admin panel under /v1/admin. The role checks
// only need a token; the rest require ADMIN, and role management
// additionally requires an owner.
func RegisterAdmin(e *echo.Echo, d Deps) {
	roles := e.Group("/v1/admin", middleware.JWTAuth(d.JWTSecret))
	roles.GET("/is-admin", d.Admin.IsAdmin)
	roles.GET("/is-owner", d.Admin.IsOwner)

	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/now-playing", d.Catalog.NowPlaying)
	g.POST("/shows", d.Catalog.AddShows)
	g.GET("/dashboard", d.Admin.Dashboard)
	g.GET("/shows", d.Admin.Shows)
	g.GET("/bookings", d.Admin.Bookings)

	isOwner := d.IsOwner
	if isOwner == nil {
		isOwner = func(string) bool { return false }
	}
	owner := g.Group("", middleware.RequireOwner(isOwner))
	owner.GET("/admins", d.Admin.Admins)
	owner.POST("/grant", d.Admin.Grant)
	owner.POST("/revoke", d.Admin.Revoke)
}
