// Package config provides domain models for plantkeep configuration.
package config

import "time"

// Storage drivers understood by the storage factory.
const (
	DriverMemory     = "memory"
	DriverFilesystem = "filesystem"
	DriverSQLite     = "sqlite"
	DriverBadger     = "badger"
	DriverRedis      = "redis"
	DriverEtcd       = "etcd"
	DriverDynamoDB   = "dynamodb"
	DriverPostgres   = "postgres"
	DriverMongoDB    = "mongodb"
	DriverGCS        = "gcs"
)

// Drivers lists every supported storage driver.
func Drivers() []string {
	return []string{
		DriverMemory, DriverFilesystem, DriverSQLite, DriverBadger, DriverRedis,
		DriverEtcd, DriverDynamoDB, DriverPostgres, DriverMongoDB, DriverGCS,
	}
}

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Storage selects and configures the key-value backend.
	Storage StorageConfig `json:"storage" yaml:"storage" toml:"storage"`
	// Logging configures the default logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty" toml:"logging"`
	// History configures the scan history.
	History HistoryConfig `json:"history,omitempty" yaml:"history,omitempty" toml:"history"`
	// Resilience configures remote fetches.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty" toml:"resilience"`
	// User is the default session.
	User UserConfig `json:"user,omitempty" yaml:"user,omitempty" toml:"user"`
	// Lock configures per-key mutual exclusion.
	Lock LockConfig `json:"lock,omitempty" yaml:"lock,omitempty" toml:"lock"`
}

// StorageConfig selects the backend. Fields not used by a driver are ignored.
type StorageConfig struct {
	// Driver is one of Drivers().
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	// Dir is the data directory for filesystem and badger.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir"`
	// DSN is the connection string for sqlite, postgres and mongodb.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" toml:"dsn"`
	// Address is the host:port for redis.
	Address string `json:"address,omitempty" yaml:"address,omitempty" toml:"address"`
	// Password authenticates against redis.
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password"`
	// Prefix namespaces keys so several devices can share one backend.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix"`
	// Table is the table or collection name.
	Table string `json:"table,omitempty" yaml:"table,omitempty" toml:"table"`
	// Database is the mongodb database name.
	Database string `json:"database,omitempty" yaml:"database,omitempty" toml:"database"`
	// Region is the AWS region for dynamodb.
	Region string `json:"region,omitempty" yaml:"region,omitempty" toml:"region"`
	// Bucket is the gcs bucket name.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket"`
	// Endpoint overrides the dynamodb or gcs endpoint (e.g. a local emulator).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint"`
	// Timeout bounds every backend request.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
	// DB is the redis database index.
	DB int `json:"db,omitempty" yaml:"db,omitempty" toml:"db"`
	// PoolSize caps open connections for sqlite and redis. Zero keeps the
	// driver default.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty" toml:"pool_size"`
	// JournalMode is the sqlite journal mode, e.g. WAL or DELETE.
	JournalMode string `json:"journal_mode,omitempty" yaml:"journal_mode,omitempty" toml:"journal_mode"`
	// BusyTimeout is how long sqlite waits on a locked database.
	BusyTimeout Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty" toml:"busy_timeout"`
}

// JournalModes returns the sqlite journal modes accepted in StorageConfig.
func JournalModes() []string {
	return []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" toml:"level"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format"`
}

// HistoryConfig configures the scan history.
type HistoryConfig struct {
	// Capacity is the maximum number of retained scans.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty" toml:"capacity"`
}

// ResilienceConfig contains resilience settings for remote fetches.
type ResilienceConfig struct {
	// Timeout bounds a single fetch attempt.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty" toml:"retry"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty" toml:"circuit_breaker"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty" toml:"bulkhead"`
	// RateLimit throttles outgoing fetches.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" toml:"rate_limit"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled"`
	// MaxAttempts is the maximum number of attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" toml:"max_attempts"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty" toml:"initial_delay"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty" toml:"multiplier"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled"`
	// Threshold is the consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty" toml:"threshold"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// Enabled enables the bulkhead.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled"`
	// MaxConcurrent is the maximum concurrent fetches.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty" toml:"max_concurrent"`
}

// RateLimitConfig throttles outgoing fetches with a token bucket.
type RateLimitConfig struct {
	// Enabled enables throttling.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled"`
	// Rate is the number of fetches per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty" toml:"rate"`
	// Burst is the bucket size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty" toml:"burst"`
}

// UserConfig identifies the default session.
type UserConfig struct {
	// ID is the user id; empty means guest.
	ID string `json:"id,omitempty" yaml:"id,omitempty" toml:"id"`
	// Email is the user's email, used for new profiles.
	Email string `json:"email,omitempty" yaml:"email,omitempty" toml:"email"`
}

// LockConfig configures per-key locking.
type LockConfig struct {
	// Distributed uses redis locks when the redis driver is selected.
	Distributed bool `json:"distributed,omitempty" yaml:"distributed,omitempty" toml:"distributed"`
	// TTL bounds how long a distributed lock is held.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty" toml:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Driver:  DriverFilesystem,
			Dir:     ".plantkeep",
			Timeout: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		History: HistoryConfig{
			Capacity: 50,
		},
		Resilience: ResilienceConfig{
			Timeout: Duration(10 * time.Second),
			Retry: RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: Duration(200 * time.Millisecond),
				Multiplier:   2,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
			Bulkhead: BulkheadConfig{
				Enabled:       true,
				MaxConcurrent: 4,
			},
		},
		Lock: LockConfig{
			TTL: Duration(10 * time.Second),
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML/TOML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by TOML.
func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
