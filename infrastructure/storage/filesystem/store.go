// Package filesystem provides a directory-backed implementation of kv.Store.
package filesystem

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

const valueExt = ".val"

// Store keeps one file per key under a base directory.
// Writes go through a temp file and rename so readers never see a torn value.
type Store struct {
	basePath string
	mu       sync.RWMutex
	hits     atomic.Int64
	misses   atomic.Int64
}

// NewStore creates a store rooted at basePath, creating the directory if needed.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	s.hits.Add(1)
	return data, true, nil
}

// Set stores a value atomically.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()        // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(key)
}

// DeleteMany removes several keys under one lock.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := s.remove(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes every stored value. Unrelated files in the directory are left alone.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.keys()
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := s.remove(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys()
}

// Stats returns store statistics.
func (s *Store) Stats() kv.Stats {
	size := int64(-1)
	s.mu.RLock()
	if keys, err := s.keys(); err == nil {
		size = int64(len(keys))
	}
	s.mu.RUnlock()

	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   size,
	}
}

func (s *Store) remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) keys() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), valueExt) {
			continue
		}
		if key, ok := decodeName(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// path maps a key to a file name that is safe on every platform.
func (s *Store) path(key string) string {
	return filepath.Join(s.basePath, base64.RawURLEncoding.EncodeToString([]byte(key))+valueExt)
}

func decodeName(name string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, valueExt))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
)
