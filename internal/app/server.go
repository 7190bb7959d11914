package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/handler"
	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/middleware"
	"github.com/iliyamo/cinego/internal/router"
	"github.com/iliyamo/cinego/internal/service"
	"github.com/iliyamo/cinego/internal/tmdb"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API process.
type Server struct {
	*core
	srv *http.Server
}

// NewServer opens storage and builds the HTTP stack. Migrations run here.
func NewServer(cfg config.Config, log *logger.Logger) (*Server, error) {
	c, err := newCore(cfg, log, true)
	if err != nil {
		return nil, err
	}
	provider, err := c.paymentProvider()
	if err != nil {
		c.close()
		return nil, err
	}

	front := strings.TrimRight(cfg.FrontendURL, "/")
	loc := cfg.Location()

	bookingSvc := service.NewBookingService(c.ledger, c.bookings, c.movies, provider, c.publisher, service.BookingOptions{
		HoldWindow:   cfg.Booking.HoldWindow,
		Currency:     cfg.Payment.Currency,
		ExchangeRate: cfg.Payment.ExchangeRate,
		SuccessURL:   front + "/loading/my-bookings",
		CancelURL:    front + "/my-bookings",
	}, service.SystemClock, log)
	confirmer := service.NewConfirmer(provider, c.bookings, c.publisher, service.SystemClock, log)
	catalog := service.NewCatalogService(
		tmdb.New(cfg.TMDB.BaseURL, cfg.TMDB.APIKey, &http.Client{Timeout: 10 * time.Second}),
		c.movies, c.shows, c.publisher, loc, service.SystemClock, log)
	users := service.NewUserService(c.users, c.movies)
	admin := service.NewAdminService(c.users, c.bookings, c.shows, cfg.Auth.OwnerEmails, service.SystemClock)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), c.rdb)
	e := router.New(router.Deps{
		JWTSecret: cfg.Auth.JWTSecret,
		Log:       log,
		Health:    handler.Health(c.db),
		Auth:      handler.NewAuthHandler(cfg.Auth, c.users, c.tokens, log),
		Bookings:  handler.NewBookingHandler(bookingSvc, log),
		Webhooks:  handler.NewWebhookHandler(confirmer, log),
		Catalog:   handler.NewCatalogHandler(catalog, cache, log),
		Users:     handler.NewUserHandler(users, log),
		Admin:     handler.NewAdminHandler(admin, log),
		IsOwner:   admin.IsOwner,
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), c.rdb, log),
		Cache:     cache.Middleware(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{core: c, srv: srv}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", "addr", s.srv.Addr, "env", s.cfg.Env)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
