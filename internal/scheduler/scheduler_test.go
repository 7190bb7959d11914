package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/service"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLocker_Exclusive(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewRedisLocker(rdb)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:job"))

	_, ok, err = l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("lock:job"))

	_, ok, err = l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewRedisLocker(rdb)

	release, ok, err := l.TryLock(context.Background(), "job", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:job", "someone-else"))

	release()
	v, err := mr.Get("lock:job")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestNewLocker_FallsBackWithoutRedis(t *testing.T) {
	assert.IsType(t, LocalLocker{}, NewLocker(nil))
}

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepOverdue(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSweeper_TickHonoursLock(t *testing.T) {
	_, rdb := newRedis(t)
	locker := NewRedisLocker(rdb)
	reaper := &countingSweeper{}
	s := NewSweeper(reaper, locker, time.Minute, logger.Discard())

	s.tick(context.Background())
	assert.Equal(t, int32(1), reaper.calls.Load())

	release, ok, err := locker.TryLock(context.Background(), sweepLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	s.tick(context.Background())
	assert.Equal(t, int32(1), reaper.calls.Load(), "held lock skips the sweep")
	release()

	reaper.err = errors.New("db down")
	s.tick(context.Background())
	assert.Equal(t, int32(2), reaper.calls.Load())
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	reaper := &countingSweeper{}
	s := NewSweeper(reaper, nil, 5*time.Millisecond, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return reaper.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type fakeRetention struct {
	runs int
	err  error
}

func (f *fakeRetention) Run(context.Context) (service.RetentionResult, error) {
	f.runs++
	return service.RetentionResult{Bookings: 3, Shows: 1}, f.err
}

func TestCleanup_Schedule(t *testing.T) {
	job := &fakeRetention{}
	c, err := NewCleanup("0 0 1 1,7 *", time.UTC, job, nil, logger.Discard())
	require.NoError(t, err)
	next := c.Next()
	assert.Equal(t, 1, next.Day())
	assert.Contains(t, []time.Month{time.January, time.July}, next.Month())
	assert.Equal(t, 0, next.Hour())

	_, err = NewCleanup("every full moon", time.UTC, job, nil, logger.Discard())
	assert.Error(t, err)
}

func TestCleanup_RunOnceUnderLock(t *testing.T) {
	_, rdb := newRedis(t)
	locker := NewRedisLocker(rdb)
	job := &fakeRetention{}
	c, err := NewCleanup("@daily", time.UTC, job, locker, logger.Discard())
	require.NoError(t, err)

	assert.True(t, c.RunOnce(context.Background()))
	assert.Equal(t, 1, job.runs)

	release, ok, err := locker.TryLock(context.Background(), cleanupLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()
	assert.False(t, c.RunOnce(context.Background()))
	assert.Equal(t, 1, job.runs)
}
