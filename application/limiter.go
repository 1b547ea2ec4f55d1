package application

import (
	"context"
	"math"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/domain/ratelimit"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const limiterComponent = "ratelimit"

// ScanLimiter enforces the daily scan budget stored under
// ratelimit.StorageKey. It fails open: when storage misbehaves the
// caller is allowed to proceed.
type ScanLimiter struct {
	db    *persist.Adapter
	cfg   Config
	limit int
}

// NewScanLimiter creates a limiter over store.
func NewScanLimiter(store kv.Store, opts ...Option) *ScanLimiter {
	return &ScanLimiter{
		db:    persist.New(store),
		cfg:   newConfig(opts),
		limit: ratelimit.MaxPerDay,
	}
}

// Limit returns the daily budget.
func (l *ScanLimiter) Limit() int {
	return l.limit
}

func (l *ScanLimiter) today() string {
	return ratelimit.Today(l.cfg.Now(), l.cfg.Location)
}

// window reads the stored window as it applies today.
func (l *ScanLimiter) window(ctx context.Context, op string) (ratelimit.Window, error) {
	var w ratelimit.Window
	if _, err := l.db.Get(ctx, ratelimit.StorageKey, &w); err != nil {
		l.cfg.report(ctx, limiterComponent, op, ratelimit.StorageKey, err)
		return ratelimit.Window{}, err
	}
	return w.Current(l.today()), nil
}

func (l *ScanLimiter) usage(w ratelimit.Window) ratelimit.Usage {
	resetIn := ratelimit.UntilMidnight(l.cfg.Now(), l.cfg.Location)
	remaining := w.Remaining(l.limit)
	return ratelimit.Usage{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Used:      w.Count,
		Limit:     l.limit,
		ResetIn:   resetIn,
		ResetTime: ratelimit.FormatReset(resetIn),
	}
}

// CanProceed reports the budget for today without consuming it.
func (l *ScanLimiter) CanProceed(ctx context.Context) ratelimit.Usage {
	w, err := l.window(ctx, "can_proceed")
	if err != nil {
		return l.usage(ratelimit.Window{})
	}
	return l.usage(w)
}

// UsageInfo is CanProceed with the percentage of the budget used.
func (l *ScanLimiter) UsageInfo(ctx context.Context) ratelimit.Usage {
	u := l.CanProceed(ctx)
	u.Percentage = int(math.Round(float64(u.Used) / float64(u.Limit) * 100))
	return u
}

// Increment consumes one scan. At the limit it fails without writing.
// Concurrent callers are serialized so the count never passes the limit.
func (l *ScanLimiter) Increment(ctx context.Context) ratelimit.Result {
	var (
		res    ratelimit.Result
		locked bool
	)
	err := l.cfg.Locker.WithLock(ctx, ratelimit.StorageKey, func(ctx context.Context) error {
		locked = true
		w, err := l.window(ctx, "increment")
		if err != nil {
			return err
		}

		if w.Count >= l.limit {
			res = ratelimit.Result{Success: false, Remaining: 0, Used: w.Count, Limit: l.limit}
			return nil
		}

		w.Count++
		if err := l.db.Set(ctx, ratelimit.StorageKey, w); err != nil {
			l.cfg.report(ctx, limiterComponent, "increment", ratelimit.StorageKey, err)
			return err
		}
		res = ratelimit.Result{Success: true, Remaining: w.Remaining(l.limit), Used: w.Count, Limit: l.limit}
		return nil
	})
	if err != nil {
		if !locked {
			l.cfg.report(ctx, limiterComponent, "lock", ratelimit.StorageKey, err)
		}
		return ratelimit.Result{Success: true, Remaining: l.limit, Used: 0, Limit: l.limit}
	}

	if !res.Success {
		logging.Warn().
			Add(logging.Component(limiterComponent)).
			Add(logging.Usage(res.Used, res.Remaining, res.Limit)).
			Msg("daily scan limit reached")
		l.cfg.Metrics.RecordRateLimitHit(ctx, res.Used, res.Limit)
	}
	return res
}

// Reset clears today's window.
func (l *ScanLimiter) Reset(ctx context.Context) bool {
	err := l.cfg.Locker.WithLock(ctx, ratelimit.StorageKey, func(ctx context.Context) error {
		return l.db.Remove(ctx, ratelimit.StorageKey)
	})
	if err != nil {
		l.cfg.report(ctx, limiterComponent, "reset", ratelimit.StorageKey, err)
		return false
	}
	return true
}
