// Package redis provides a Redis-backed implementation of kv.Store.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes how a device reaches a shared Redis cache.
type Config struct {
	// Address is host:port.
	Address string

	// Password is optional.
	Password string

	// DB is the database index.
	DB int

	// MaxRetries bounds client-side retries of a single command.
	MaxRetries int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PoolSize caps open connections; MinIdleConns keeps a few warm.
	PoolSize     int
	MinIdleConns int

	// KeyPrefix separates devices or users sharing one server.
	KeyPrefix string
}

// DefaultConfig returns the settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		Address:      "localhost:6379",
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
		KeyPrefix:    "plantkeep:",
	}
}

// ConfigOption adjusts a Config.
type ConfigOption func(*Config)

// WithAddress sets host:port.
func WithAddress(addr string) ConfigOption {
	return func(c *Config) { c.Address = addr }
}

// WithPassword sets the password.
func WithPassword(password string) ConfigOption {
	return func(c *Config) { c.Password = password }
}

// WithDB selects the database index.
func WithDB(db int) ConfigOption {
	return func(c *Config) { c.DB = db }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithPoolSize caps open connections. MinIdleConns is lowered to fit.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = size
		c.MinIdleConns = min(c.MinIdleConns, size)
	}
}

// WithTimeouts sets the dial, read and write timeouts.
func WithTimeouts(dial, read, write time.Duration) ConfigOption {
	return func(c *Config) {
		c.DialTimeout, c.ReadTimeout, c.WriteTimeout = dial, read, write
	}
}

// ClientOptions maps c onto go-redis options.
func (c Config) ClientOptions() *redis.Options {
	return &redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
