// Package app assembles the API server and the background worker from
// configuration.
package app

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/database"
	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/payment"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
	"github.com/iliyamo/cinego/internal/service"
)

// core holds what both processes share: storage, the broker publisher and
// the booking workflow services.
type core struct {
	cfg config.Config
	log *logger.Logger
	db  *sql.DB
	rdb *redis.Client

	shows    *repository.ShowRepo
	movies   *repository.MovieRepo
	bookings *repository.BookingRepo
	users    *repository.UserRepo
	tokens   *repository.TokenRepo

	publisher *queue.Publisher
	ledger    *service.SeatLedger
	reaper    *service.Reaper
}

func newCore(cfg config.Config, log *logger.Logger, migrate bool) (*core, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	rcfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(rcfg)
	if rdb == nil {
		log.Warn("redis unavailable, running without cache, rate limit and shared locks", "addr", rcfg.String())
	}

	c := &core{
		cfg:       cfg,
		log:       log,
		db:        db,
		rdb:       rdb,
		shows:     repository.NewShowRepo(db),
		movies:    repository.NewMovieRepo(db),
		bookings:  repository.NewBookingRepo(db),
		users:     repository.NewUserRepo(db),
		tokens:    repository.NewTokenRepo(db),
		publisher: queue.NewPublisher(cfg.RabbitURL, log),
	}
	c.ledger = service.NewSeatLedger(c.shows, log)
	c.reaper = service.NewReaper(c.bookings, c.ledger, cfg.Booking.SweepGrace, service.SystemClock, log)
	return c, nil
}

func (c *core) paymentProvider() (payment.Provider, error) {
	if c.cfg.Payment.WebhookSecret == "" {
		c.log.Warn("STRIPE_WEBHOOK_SECRET not set, payment webhooks will be rejected")
	}
	return payment.NewStripeProvider(c.cfg.Payment.SecretKey, c.cfg.Payment.WebhookSecret, nil)
}

func (c *core) close() {
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if err := c.db.Close(); err != nil {
		c.log.WithError(err).Warn("close database")
	}
}
