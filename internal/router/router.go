// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinego/internal/handler"
	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/middleware"
)

// Deps is everything the route table needs.
type Deps struct {
	JWTSecret string
	Log       *logger.Logger
	Health    echo.HandlerFunc

	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Webhooks *handler.WebhookHandler
	Catalog  *handler.CatalogHandler
	Users    *handler.UserHandler
	Admin    *handler.AdminHandler

	// IsOwner decides who may manage admins.
	IsOwner func(email string) bool
	// RateLimit guards auth and booking writes; Cache fronts catalog reads.
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// New builds the echo server with the shared middleware stack and every route.
func New(d Deps) *echo.Echo {
	if d.RateLimit == nil {
		d.RateLimit = passThrough
	}
	if d.Cache == nil {
		d.Cache = passThrough
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORS())

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterAdmin(e, d)
	return e
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RegisterRoutes registers the unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)
}

// RegisterAuth registers the session endpoints and /v1/me.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", d.RateLimit)
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
}

// RegisterPublic registers guest browsing and the payment webhook. The
// webhook is authenticated by its signature, not by a token.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/v1/movies", d.Catalog.ListMovies, d.Cache)
	e.GET("/v1/movies/:id", d.Catalog.Movie, d.Cache)
	e.GET("/v1/shows/search", d.Catalog.Search)
	e.GET("/v1/shows/:id/occupied-seats", d.Bookings.OccupiedSeats)

	e.POST("/v1/webhooks/payment", d.Webhooks.Payment)
}
