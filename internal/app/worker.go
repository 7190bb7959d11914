package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/notify"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/scheduler"
	"github.com/iliyamo/cinego/internal/service"
)

// Worker consumes the broker queues and runs the periodic jobs.
type Worker struct {
	*core
	consumers []*queue.Consumer
	sweeper   *scheduler.Sweeper
	cleanup   *scheduler.Cleanup
}

// NewWorker builds the queue consumers and scheduled jobs.
func NewWorker(cfg config.Config, log *logger.Logger) (*Worker, error) {
	c, err := newCore(cfg, log, false)
	if err != nil {
		return nil, err
	}

	notifier := service.NewNotifier(notify.NewSMTPMailer(cfg.SMTP, log), c.users, c.shows, c.movies,
		cfg.Location(), cfg.FrontendURL, log)
	retention := service.NewRetention(c.bookings, c.shows, cfg.Booking.RetentionMonths, service.SystemClock, log)
	locker := scheduler.NewLocker(c.rdb)

	cleanup, err := scheduler.NewCleanup(cfg.Booking.CleanupCron, cfg.Location(), retention, locker, log)
	if err != nil {
		c.close()
		return nil, err
	}

	return &Worker{
		core: c,
		consumers: []*queue.Consumer{
			queue.NewConsumer(cfg.RabbitURL, queue.HoldExpiredQueue, queue.JSONHandler(c.reaper.HandleExpiry), log),
			queue.NewConsumer(cfg.RabbitURL, queue.BookingConfirmedQueue, queue.JSONHandler(notifier.BookingConfirmed), log),
			queue.NewConsumer(cfg.RabbitURL, queue.ShowAddedQueue, queue.JSONHandler(notifier.ShowAdded), log),
		},
		sweeper: scheduler.NewSweeper(c.reaper, locker, cfg.Booking.SweepInterval, log),
		cleanup: cleanup,
	}, nil
}

// Run blocks until ctx is cancelled or a consumer fails for good.
func (w *Worker) Run(ctx context.Context) error {
	defer w.close()

	g, ctx := errgroup.WithContext(ctx)
	for _, cons := range w.consumers {
		cons := cons // per-iteration copy; module targets go1.21 loop semantics
		g.Go(func() error {
			if err := cons.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consumer %s: %w", cons.Queue(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		w.sweeper.Start(ctx)
		return nil
	})
	g.Go(func() error {
		w.cleanup.Start(ctx)
		return nil
	})

	w.log.Info("worker started", "queues", len(w.consumers))
	err := g.Wait()
	w.log.Info("worker stopped")
	return err
}
