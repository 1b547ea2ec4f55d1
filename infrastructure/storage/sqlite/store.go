package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// Store is a SQLite-backed implementation of kv.Store.
// Every key is one row in the kv_entries table.
type Store struct {
	db        *sql.DB
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewStore opens a SQLite store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreFromDB creates a store from an existing database connection.
func NewStoreFromDB(db *sql.DB, keyPrefix string) (*Store, error) {
	s := &Store{
		db:        db,
		keyPrefix: keyPrefix,
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE key = ?",
		s.prefixKey(key),
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.hits.Add(1)
	return value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		s.prefixKey(key), value, time.Now().UnixMilli(),
	)
	return err
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", s.prefixKey(key))
	return err
}

// DeleteMany removes several keys in one transaction.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM kv_entries WHERE key = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, s.prefixKey(k)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Clear removes every key owned by the store.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.keyPrefix == "" {
		_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries")
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key LIKE ? ESCAPE '\'`,
		escapeLike(s.keyPrefix)+"%",
	)
	return err
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Stats returns store statistics.
func (s *Store) Stats() kv.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var size int64
	_ = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv_entries WHERE key LIKE ? ESCAPE '\'`,
		escapeLike(s.keyPrefix)+"%",
	).Scan(&size)

	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ kv.Closer        = (*Store)(nil)
)
