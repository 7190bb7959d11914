package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/service"
)

const (
	cleanupLockKey = "retention-cleanup"
	cleanupLockTTL = 10 * time.Minute
)

type retentionRunner interface {
	Run(ctx context.Context) (service.RetentionResult, error)
}

// Cleanup runs the retention purge on a cron schedule.
type Cleanup struct {
	cron   *cron.Cron
	job    retentionRunner
	locker Locker
	log    *logger.Logger
}

// NewCleanup validates spec, a standard five-field cron expression
// evaluated in loc.
func NewCleanup(spec string, loc *time.Location, job retentionRunner, locker Locker, log *logger.Logger) (*Cleanup, error) {
	if loc == nil {
		loc = time.UTC
	}
	if locker == nil {
		locker = LocalLocker{}
	}
	c := &Cleanup{
		cron:   cron.New(cron.WithLocation(loc)),
		job:    job,
		locker: locker,
		log:    log.WithComponent("cleanup"),
	}
	if _, err := c.cron.AddFunc(spec, func() { c.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", spec, err)
	}
	return c, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// purge to finish.
func (c *Cleanup) Start(ctx context.Context) {
	c.cron.Start()
	c.log.Info("cleanup scheduled", "next", c.Next().Format(time.RFC3339))
	<-ctx.Done()
	<-c.cron.Stop().Done()
	c.log.Info("cleanup stopped")
}

// Next returns the next scheduled run.
func (c *Cleanup) Next() time.Time {
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

// RunOnce purges once under the cleanup lock. It reports whether the purge ran.
func (c *Cleanup) RunOnce(ctx context.Context) bool {
	release, ok, err := c.locker.TryLock(ctx, cleanupLockKey, cleanupLockTTL)
	if err != nil {
		c.log.WithError(err).Warn("cleanup lock failed")
		return false
	}
	if !ok {
		c.log.Info("cleanup already running elsewhere")
		return false
	}
	defer release()

	res, err := c.job.Run(ctx)
	if err != nil {
		c.log.WithError(err).Error("retention cleanup failed")
		return true
	}
	c.log.Info("retention cleanup done", "bookings", res.Bookings, "shows", res.Shows)
	return true
}
