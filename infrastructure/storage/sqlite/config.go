// Package sqlite provides a SQLite-backed implementation of kv.Store.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config configures the on-device SQLite file.
type Config struct {
	// DSN is a file path or a "file:" URI.
	DSN string

	// MaxOpenConns caps open connections.
	MaxOpenConns int

	// MaxIdleConns is the number of idle connections kept open.
	MaxIdleConns int

	// ConnMaxIdleTime closes connections idle for longer.
	ConnMaxIdleTime time.Duration

	// JournalMode is applied with PRAGMA journal_mode when set.
	JournalMode string

	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration

	// KeyPrefix namespaces keys when several profiles share a file.
	KeyPrefix string
}

// Option configures SQLite storage.
type Option func(*Config)

// WithDSN sets the database file.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithMaxOpenConns caps open connections. Non-positive values are ignored.
func WithMaxOpenConns(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxOpenConns = n
			c.MaxIdleConns = min(c.MaxIdleConns, n)
		}
	}
}

// WithJournalMode sets the journal mode, e.g. "WAL" or "DELETE".
func WithJournalMode(mode string) Option {
	return func(c *Config) {
		c.JournalMode = strings.ToUpper(mode)
	}
}

// WithBusyTimeout sets the lock wait.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BusyTimeout = d
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// DefaultConfig returns the configuration used on a device.
func DefaultConfig() Config {
	return Config{
		DSN:             "file:plantkeep.db?cache=shared&mode=rwc",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxIdleTime: 10 * time.Minute,
		JournalMode:     "WAL",
		BusyTimeout:     5 * time.Second,
	}
}

// Errors
var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// pragmas returns the statements run on a new connection. WAL is paired
// with synchronous=NORMAL.
func (c Config) pragmas() []string {
	var out []string
	if c.JournalMode != "" {
		out = append(out, "PRAGMA journal_mode="+c.JournalMode)
		if c.JournalMode == "WAL" {
			out = append(out, "PRAGMA synchronous=NORMAL")
		}
	}
	if c.BusyTimeout > 0 {
		out = append(out, fmt.Sprintf("PRAGMA busy_timeout=%d", c.BusyTimeout.Milliseconds()))
	}
	return out
}

func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	for _, pragma := range cfg.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrConnectionFailed, fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}
