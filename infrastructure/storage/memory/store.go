// Package memory provides an in-memory implementation of kv.Store.
package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// Store is an in-memory implementation of kv.Store.
// Values are copied on the way in and out.
type Store struct {
	entries map[string][]byte
	mu      sync.RWMutex
	hits    int64
	misses  int64
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string][]byte),
	}
}

// Get retrieves a value from the store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false, nil
	}
	s.hits++

	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = stored
	s.mu.Unlock()
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// DeleteMany removes several keys under one lock.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	s.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns store statistics.
func (s *Store) Stats() kv.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return kv.Stats{
		Hits:   s.hits,
		Misses: s.misses,
		Size:   int64(len(s.entries)),
	}
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
)
