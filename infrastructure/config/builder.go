package config

import (
	"context"
	"fmt"

	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/domain/user"
	"github.com/felixgeelhaar/plantkeep/infrastructure/distributed/lock"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/resilience"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/redis"
)

// Builder builds runtime components from configuration.
type Builder struct {
	config   *domainconfig.AppConfig
	openOpts []storage.OpenOption
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.AppConfig, opts ...storage.OpenOption) *Builder {
	return &Builder{config: config, openOpts: opts}
}

// BuildResult contains the built components from configuration.
type BuildResult struct {
	// Store is the opened key-value backend.
	Store kv.Store
	// Locker serializes read-modify-write per key.
	Locker lock.Locker
	// Resilience configures remote fetches.
	Resilience resilience.Config
	// HistoryCapacity is the scan history cap.
	HistoryCapacity int
	// Logging is the logger configuration.
	Logging logging.Config
	// User is the default session.
	User user.Static
}

// Close releases the store.
func (r *BuildResult) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return storage.Close(r.Store)
}

// Build opens the store and assembles the components around it.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	store, err := storage.Open(ctx, b.config.Storage, b.openOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: storage: %w", domainconfig.ErrBuildFailed, err)
	}

	result := &BuildResult{
		Store:           store,
		Resilience:      resilience.FromConfig(b.config.Resilience),
		HistoryCapacity: b.config.History.Capacity,
		Logging:         b.buildLogging(),
		User:            user.Static{ID: b.config.User.ID, Email: b.config.User.Email},
	}

	locker, err := b.buildLocker(store)
	if err != nil {
		_ = storage.Close(store)
		return nil, fmt.Errorf("%w: lock: %w", domainconfig.ErrBuildFailed, err)
	}
	result.Locker = locker

	return result, nil
}

func (b *Builder) buildLogging() logging.Config {
	cfg := logging.DefaultConfig()
	if b.config.Logging.Level != "" {
		cfg.Level = b.config.Logging.Level
	}
	if b.config.Logging.Format != "" {
		cfg.Format = b.config.Logging.Format
	}
	return cfg
}

// buildLocker returns an in-process lock, chained with a Redis lock when
// the store is shared through Redis.
func (b *Builder) buildLocker(store kv.Store) (lock.Locker, error) {
	local := lock.NewKeyedMutex()
	if !b.config.Lock.Distributed {
		return local, nil
	}

	rs, ok := store.(*redis.Store)
	if !ok {
		return nil, fmt.Errorf("distributed lock needs the redis driver, got %q", b.config.Storage.Driver)
	}

	opts := []lock.RedisOption{lock.WithTTL(b.config.Lock.TTL.Duration())}
	if b.config.Storage.Prefix != "" {
		opts = append(opts, lock.WithKeyPrefix(b.config.Storage.Prefix))
	}
	return lock.Chain{local, lock.NewRedisLock(rs.Client(), opts...)}, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *domainconfig.AppConfig {
	return domainconfig.Default()
}
