package application

import (
	"context"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/user"
	"github.com/felixgeelhaar/plantkeep/infrastructure/distributed/lock"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/telemetry"
)

// ErrorHook receives failures that a service swallowed.
type ErrorHook func(ctx context.Context, operation, key string, err error)

// Config holds the collaborators shared by the services.
type Config struct {
	// Now returns the current time.
	Now func() time.Time
	// Location is the calendar used for the daily scan window.
	Location *time.Location
	// Locker serializes read-modify-write per key. Services sharing a
	// store should share a Locker.
	Locker lock.Locker
	// Metrics receives cache and limiter events.
	Metrics telemetry.Metrics
	// OnError is called for every swallowed failure.
	OnError ErrorHook
	// Users resolves the owner of per-user collections.
	Users user.Provider
	// HistoryCapacity caps the scan history.
	HistoryCapacity int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Now:             time.Now,
		Location:        time.Local,
		Metrics:         telemetry.NoopMetricsProvider{},
		Users:           user.Guest,
		HistoryCapacity: collection.DefaultHistoryCapacity,
	}
}

// Option configures a service.
type Option func(*Config)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithLocation sets the calendar for the daily window.
func WithLocation(loc *time.Location) Option {
	return func(c *Config) {
		c.Location = loc
	}
}

// WithLocker sets the per-key lock.
func WithLocker(l lock.Locker) Option {
	return func(c *Config) {
		c.Locker = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithErrorHook sets the hook for swallowed failures.
func WithErrorHook(h ErrorHook) Option {
	return func(c *Config) {
		c.OnError = h
	}
}

// WithUsers sets the user provider.
func WithUsers(p user.Provider) Option {
	return func(c *Config) {
		c.Users = p
	}
}

// WithCapacity sets the scan history cap.
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.HistoryCapacity = n
	}
}

func newConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewKeyedMutex()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetricsProvider{}
	}
	if cfg.Users == nil {
		cfg.Users = user.Guest
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = collection.DefaultHistoryCapacity
	}
	return cfg
}

// report logs a swallowed failure and forwards it to the metrics sink and hook.
func (c Config) report(ctx context.Context, component, operation, key string, err error) {
	logging.Warn().
		Add(logging.Component(component)).
		Add(logging.Operation(operation)).
		Add(logging.Key(key)).
		Add(logging.ErrorField(err)).
		Msg("storage operation failed")

	c.Metrics.RecordStorageError(ctx, key, operation)
	if c.OnError != nil {
		c.OnError(ctx, operation, key, err)
	}
}

// ownerID returns the signed-in user's id, or "" for the guest scope.
func (c Config) ownerID() string {
	if u, ok := c.Users.CurrentUser(); ok {
		return u.ID
	}
	return ""
}
