package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// Store is a PostgreSQL-backed implementation of kv.Store.
type Store struct {
	pool      *pgxpool.Pool
	table     string
	keyPrefix string
	ownsPool  bool
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewStore connects to PostgreSQL and creates the kv table if needed.
func NewStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewStoreFromPool(pool, cfg)
	s.ownsPool = true
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreFromPool creates a store over an existing pool.
// The caller keeps ownership of the pool.
func NewStoreFromPool(pool *pgxpool.Pool, cfg Config) *Store {
	return &Store{
		pool:      pool,
		table:     qualifiedTable(cfg.Schema, cfg.Table),
		keyPrefix: cfg.KeyPrefix,
	}
}

// qualifiedTable returns the quoted schema.table identifier.
func qualifiedTable(schema, table string) string {
	if schema == "" {
		schema = "public"
	}
	if table == "" {
		table = "kv_entries"
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// Migrate creates the kv table if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.table)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate: %w", err)
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
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.table),
		s.prefixKey(key),
	).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
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

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, s.table), s.prefixKey(key), value)
	return err
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.table),
		s.prefixKey(key),
	)
	return err
}

// DeleteMany removes several keys with one statement.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefixKey(k)
	}

	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = ANY($1)", s.table),
		prefixed,
	)
	return err
}

// Clear removes every key owned by the store.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key LIKE $1 ESCAPE '\'`, s.table),
		likePrefix(s.keyPrefix),
	)
	return err
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// Stats returns store statistics.
func (s *Store) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   -1,
	}
}

// Close releases the pool when the store created it.
func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ kv.Closer        = (*Store)(nil)
)
