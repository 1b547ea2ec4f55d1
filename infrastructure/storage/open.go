// Package storage opens the configured key-value backend.
package storage

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/plantkeep/domain/config"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/badger"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/etcd"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/gcs"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/memory"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/redis"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/sqlite"
)

type openOptions struct {
	etcdClient etcd.Client
	gcsClient  gcs.Client
}

// OpenOption customizes Open.
type OpenOption func(*openOptions)

// WithEtcdClient supplies the client used by the etcd driver.
// The etcd driver has no built-in dialer; it falls back to an in-process
// client when none is given.
func WithEtcdClient(c etcd.Client) OpenOption {
	return func(o *openOptions) {
		o.etcdClient = c
	}
}

// WithGCSClient supplies the client used by the gcs driver instead of
// dialing Cloud Storage.
func WithGCSClient(c gcs.Client) OpenOption {
	return func(o *openOptions) {
		o.gcsClient = c
	}
}

// Open constructs the backend named by cfg.Driver.
// The caller owns the returned store and should close it with Close.
func Open(ctx context.Context, cfg config.StorageConfig, opts ...OpenOption) (kv.Store, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	store, err := open(ctx, cfg, o)
	if err != nil {
		logging.Error().
			Add(logging.Driver(cfg.Driver)).
			Add(logging.ErrorField(err)).
			Msg("failed to open storage")
		return nil, err
	}

	logging.Debug().
		Add(logging.Driver(cfg.Driver)).
		Msg("storage opened")
	return store, nil
}

func open(ctx context.Context, cfg config.StorageConfig, o openOptions) (kv.Store, error) {
	timeout := cfg.Timeout.Duration()

	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil

	case config.DriverFilesystem:
		return filesystem.NewStore(cfg.Dir)

	case config.DriverSQLite:
		opts := []sqlite.Option{sqlite.WithKeyPrefix(cfg.Prefix), sqlite.WithMaxOpenConns(cfg.PoolSize)}
		if cfg.DSN != "" {
			opts = append(opts, sqlite.WithDSN(cfg.DSN))
		}
		if cfg.JournalMode != "" {
			opts = append(opts, sqlite.WithJournalMode(cfg.JournalMode))
		}
		if cfg.BusyTimeout > 0 {
			opts = append(opts, sqlite.WithBusyTimeout(cfg.BusyTimeout.Duration()))
		}
		return sqlite.NewStore(sqlite.DefaultConfig(), opts...)

	case config.DriverBadger:
		return badger.NewStore(badger.DefaultConfig(),
			badger.WithDir(cfg.Dir),
			badger.WithKeyPrefix(cfg.Prefix),
		)

	case config.DriverRedis:
		return redis.NewStore(redisConfig(cfg))

	case config.DriverEtcd:
		client := o.etcdClient
		if client == nil {
			client = etcd.NewMemoryClient()
		}
		return etcd.NewStore(etcd.Config{Client: client, KeyPrefix: cfg.Prefix})

	case config.DriverDynamoDB:
		opts := []dynamodb.ConfigOption{dynamodb.WithKeyPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			opts = append(opts, dynamodb.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, dynamodb.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Table != "" {
			opts = append(opts, dynamodb.WithTableName(cfg.Table))
		}
		if timeout > 0 {
			opts = append(opts, dynamodb.WithQueryTimeout(timeout))
		}
		return dynamodb.NewStore(ctx, opts...)

	case config.DriverPostgres:
		opts := []postgres.ConfigOption{postgres.WithDSN(cfg.DSN), postgres.WithKeyPrefix(cfg.Prefix)}
		if cfg.Table != "" {
			opts = append(opts, postgres.WithTable(cfg.Table))
		}
		return postgres.NewStore(ctx, postgres.DefaultConfig(), opts...)

	case config.DriverMongoDB:
		opts := []mongodb.ConfigOption{mongodb.WithURI(cfg.DSN), mongodb.WithKeyPrefix(cfg.Prefix)}
		if cfg.Database != "" {
			opts = append(opts, mongodb.WithDatabase(cfg.Database))
		}
		if cfg.Table != "" {
			opts = append(opts, mongodb.WithCollection(cfg.Table))
		}
		client, err := mongodb.NewClient(ctx, mongodb.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		return mongodb.NewStore(client), nil

	case config.DriverGCS:
		client := o.gcsClient
		if client == nil {
			c, err := gcs.NewCloudClient(ctx, cfg.Endpoint)
			if err != nil {
				return nil, err
			}
			client = c
		}
		return gcs.NewStore(gcs.Config{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix})

	default:
		return nil, fmt.Errorf("%w: %q", kv.ErrUnknownDriver, cfg.Driver)
	}
}

// Close releases the store's resources when it holds any.
func Close(s kv.Store) error {
	if c, ok := s.(kv.Closer); ok {
		return c.Close()
	}
	return nil
}

func redisConfig(cfg config.StorageConfig) redis.Config {
	rc := redis.DefaultConfig()
	opts := []redis.ConfigOption{
		redis.WithAddress(cfg.Address),
		redis.WithPassword(cfg.Password),
		redis.WithDB(cfg.DB),
	}
	if cfg.Prefix != "" {
		opts = append(opts, redis.WithKeyPrefix(cfg.Prefix))
	}
	if cfg.PoolSize > 0 {
		opts = append(opts, redis.WithPoolSize(cfg.PoolSize))
	}
	if timeout := cfg.Timeout.Duration(); timeout > 0 {
		opts = append(opts, redis.WithTimeouts(timeout, timeout, timeout))
	}
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}
