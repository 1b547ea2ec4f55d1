package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/ratelimit"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/memory"
)

func newLimiter(t *testing.T, at time.Time) (*application.ScanLimiter, *memory.Store, *clock) {
	t.Helper()
	store := memory.NewStore()
	clk := newClock(at)
	l := application.NewScanLimiter(store,
		application.WithClock(clk.Now),
		application.WithLocation(time.UTC),
	)
	return l, store, clk
}

func storedWindow(t *testing.T, store *memory.Store) ratelimit.Window {
	t.Helper()
	var w ratelimit.Window
	_, err := persist.New(store).Get(context.Background(), ratelimit.StorageKey, &w)
	require.NoError(t, err)
	return w
}

func TestScanLimiter_FreshBudget(t *testing.T) {
	t.Parallel()
	l, _, _ := newLimiter(t, t0)

	u := l.CanProceed(context.Background())
	require.True(t, u.Allowed)
	require.Equal(t, ratelimit.MaxPerDay, u.Remaining)
	require.Equal(t, 0, u.Used)
	require.Equal(t, ratelimit.MaxPerDay, u.Limit)
	require.Equal(t, "12h 0m", u.ResetTime)
}

func TestScanLimiter_Saturation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, store, _ := newLimiter(t, t0)

	for i := 1; i <= ratelimit.MaxPerDay; i++ {
		r := l.Increment(ctx)
		require.True(t, r.Success)
		require.Equal(t, i, r.Used)
		require.Equal(t, ratelimit.MaxPerDay-i, r.Remaining)
	}

	r := l.Increment(ctx)
	require.False(t, r.Success)
	require.Equal(t, 0, r.Remaining)
	require.Equal(t, ratelimit.MaxPerDay, r.Used)
	require.Equal(t, ratelimit.MaxPerDay, storedWindow(t, store).Count)

	u := l.CanProceed(ctx)
	require.False(t, u.Allowed)
	require.Equal(t, 0, u.Remaining)
}

func TestScanLimiter_WindowReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, store, clk := newLimiter(t, t0)

	require.NoError(t, persist.New(store).Set(ctx, ratelimit.StorageKey,
		ratelimit.Window{Date: "2024-04-30", Count: ratelimit.MaxPerDay}))

	u := l.CanProceed(ctx)
	require.True(t, u.Allowed)
	require.Equal(t, 0, u.Used)
	require.Equal(t, "2024-04-30", storedWindow(t, store).Date, "CanProceed must not write")

	r := l.Increment(ctx)
	require.True(t, r.Success)
	require.Equal(t, ratelimit.Window{Date: "2024-05-01", Count: 1}, storedWindow(t, store))

	clk.Advance(12 * time.Hour)
	require.Equal(t, 0, l.CanProceed(ctx).Used)
}

func TestScanLimiter_UsageInfo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, _ := newLimiter(t, time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		l.Increment(ctx)
	}
	u := l.UsageInfo(ctx)
	require.Equal(t, 30, u.Percentage)
	require.Equal(t, "1h 30m", u.ResetTime)
	require.Equal(t, 90*time.Minute, u.ResetIn)
}

func TestScanLimiter_FailsOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("io error")

	rec := &hookRecorder{}
	l := application.NewScanLimiter(faultyStore{Store: memory.NewStore(), getErr: boom},
		application.WithErrorHook(rec.hook))

	u := l.CanProceed(ctx)
	require.True(t, u.Allowed)
	require.Equal(t, ratelimit.MaxPerDay, u.Remaining)
	require.Equal(t, 0, u.Used)

	r := l.Increment(ctx)
	require.Equal(t, ratelimit.Result{Success: true, Remaining: ratelimit.MaxPerDay, Used: 0, Limit: ratelimit.MaxPerDay}, r)
	require.Contains(t, rec.Ops(), "increment")
}

func TestScanLimiter_FailsOpenOnWrite(t *testing.T) {
	t.Parallel()

	l := application.NewScanLimiter(faultyStore{Store: memory.NewStore(), setErr: errors.New("read-only")})
	r := l.Increment(context.Background())
	require.True(t, r.Success)
	require.Equal(t, 0, r.Used)
}

func TestScanLimiter_ConcurrentIncrements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, store, _ := newLimiter(t, t0)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Increment(ctx).Success {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(ratelimit.MaxPerDay), successes.Load())
	require.Equal(t, ratelimit.MaxPerDay, storedWindow(t, store).Count)
}

func TestScanLimiter_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, _ := newLimiter(t, t0)

	l.Increment(ctx)
	require.True(t, l.Reset(ctx))
	require.Equal(t, 0, l.CanProceed(ctx).Used)
}

func TestScanLimiter_ReportsLockFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rec := &hookRecorder{}
	l := application.NewScanLimiter(memory.NewStore(),
		application.WithLocker(failingLocker{err: context.Canceled}),
		application.WithErrorHook(rec.hook))

	r := l.Increment(ctx)
	require.True(t, r.Success)
	require.Equal(t, 0, r.Used)
	require.Equal(t, []string{"lock"}, rec.Ops())
}
