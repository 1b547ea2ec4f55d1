// Package etcd provides an etcd-backed implementation of kv.Store.
//
// The store talks to etcd through the small Client interface so that any
// etcd v3 client (or a test double) can be plugged in.
package etcd

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// ErrClientRequired is returned when no etcd client is configured.
var ErrClientRequired = errors.New("etcd client is required")

// Client defines the etcd operations the store needs.
type Client interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores a value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all keys with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close closes the client connection.
	Close() error
}

// Config holds configuration for the etcd store.
type Config struct {
	// Client is the etcd client to use.
	Client Client

	// KeyPrefix is the prefix for all keys.
	KeyPrefix string
}

// Store is an etcd-backed implementation of kv.Store.
type Store struct {
	client    Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewStore creates a new etcd store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrClientRequired
	}

	return &Store{
		client:    cfg.Client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *Store) namespace() string {
	return s.keyPrefix + "kv/"
}

func (s *Store) prefixKey(key string) string {
	return s.namespace() + key
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, found, err := s.client.Get(ctx, s.prefixKey(key))
	if err != nil {
		return nil, false, err
	}
	if !found {
		s.misses.Add(1)
		return nil, false, nil
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

	return s.client.Put(ctx, s.prefixKey(key), value)
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.client.Delete(ctx, s.prefixKey(key))
}

// Clear removes every key under the store's namespace.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.client.DeletePrefix(ctx, s.namespace())
}

// Stats returns store statistics. Size is not tracked for etcd.
func (s *Store) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   -1,
	}
}

// Close closes the etcd client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ kv.Closer        = (*Store)(nil)
)

// MemoryClient is an in-process Client used for tests and local development.
type MemoryClient struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{data: make(map[string][]byte)}
}

var errClientClosed = errors.New("etcd: client closed")

// Get implements Client.
func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, false, errClientClosed
	}
	v, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put implements Client.
func (c *MemoryClient) Put(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = stored
	return nil
}

// Delete implements Client.
func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	delete(c.data, key)
	return nil
}

// DeletePrefix implements Client.
func (c *MemoryClient) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

// Close implements Client.
func (c *MemoryClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Keys returns the raw keys held by the client, sorted.
func (c *MemoryClient) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
