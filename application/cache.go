// Package application provides the services of the offline data layer:
// the timestamped cache, the daily scan limiter, the user collections and
// the cache-backed loader.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/cache"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const cacheComponent = "cache"

// SaveOption configures a single Save.
type SaveOption func(*saveOptions)

type saveOptions struct {
	expiry time.Duration
}

// WithExpiry stores a per-entry window that overrides the reader's default.
func WithExpiry(d time.Duration) SaveOption {
	return func(o *saveOptions) {
		o.expiry = d
	}
}

// CacheStore keeps timestamped entries and evicts them lazily on read.
// No method returns an error: failures are logged, reported and
// degrade to a miss or a no-op.
type CacheStore struct {
	db  *persist.Adapter
	cfg Config
}

// NewCacheStore creates a cache over store.
func NewCacheStore(store kv.Store, opts ...Option) *CacheStore {
	return &CacheStore{
		db:  persist.New(store),
		cfg: newConfig(opts),
	}
}

func (c *CacheStore) fail(ctx context.Context, op, key string, err error) {
	c.cfg.report(ctx, cacheComponent, op, key, err)
}

// Save wraps data in a fresh entry and writes it. It reports whether the
// write landed.
func (c *CacheStore) Save(ctx context.Context, key string, data any, opts ...SaveOption) bool {
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		c.fail(ctx, "save", key, fmt.Errorf("encode: %w", err))
		return false
	}

	err = c.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		return c.db.Set(ctx, key, cache.NewEntry(raw, c.cfg.Now(), o.expiry))
	})
	if err != nil {
		c.fail(ctx, "save", key, err)
		return false
	}

	logging.Debug().
		Add(logging.Component(cacheComponent)).
		Add(logging.Key(key)).
		Add(logging.Bytes(len(raw))).
		Msg("cache entry saved")
	return true
}

// entry reads the envelope under key. Corrupt envelopes and values that
// are not envelopes read as absent and are never evicted.
func (c *CacheStore) entry(ctx context.Context, op, key string) (cache.Entry, bool) {
	var e cache.Entry
	found, err := c.db.Get(ctx, key, &e)
	if err != nil {
		c.fail(ctx, op, key, err)
		return cache.Entry{}, false
	}
	if found && !e.Valid() {
		logging.Warn().
			Add(logging.Component(cacheComponent)).
			Add(logging.Operation(op)).
			Add(logging.Key(key)).
			Msg("stored value is not a cache entry")
		return cache.Entry{}, false
	}
	return e, found
}

func (c *CacheStore) decode(ctx context.Context, op, key string, e cache.Entry, dst any) bool {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		logging.Warn().
			Add(logging.Component(cacheComponent)).
			Add(logging.Operation(op)).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("cached payload does not match destination")
		c.cfg.Metrics.RecordCacheMiss(ctx, key)
		return false
	}
	return true
}

// Load decodes the entry under key into dst when it is fresh. An expired
// entry is removed and reported as a miss.
func (c *CacheStore) Load(ctx context.Context, key string, defaultExpiry time.Duration, dst any) bool {
	e, ok := c.loadFresh(ctx, key, defaultExpiry)
	if !ok {
		return false
	}
	if !c.decode(ctx, "load", key, e, dst) {
		return false
	}
	c.cfg.Metrics.RecordCacheHit(ctx, key)
	return true
}

// loadFresh returns the entry under key if fresh, evicting it otherwise.
// The check and the eviction share the key's lock so a concurrent Save
// is never removed.
func (c *CacheStore) loadFresh(ctx context.Context, key string, defaultExpiry time.Duration) (cache.Entry, bool) {
	var (
		e     cache.Entry
		fresh bool
	)
	err := c.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		var found bool
		e, found = c.entry(ctx, "load", key)
		if !found {
			c.cfg.Metrics.RecordCacheMiss(ctx, key)
			return nil
		}

		now := c.cfg.Now()
		if e.IsFresh(now, defaultExpiry) {
			fresh = true
			return nil
		}

		age := e.Age(now)
		logging.Debug().
			Add(logging.Component(cacheComponent)).
			Add(logging.Key(key)).
			Add(logging.AgeHours(age)).
			Add(logging.ExpiryHours(e.Expiry(defaultExpiry))).
			Msg("cache entry expired")
		c.cfg.Metrics.RecordCacheExpired(ctx, key, age)

		if err := c.db.Remove(ctx, key); err != nil {
			c.fail(ctx, "evict", key, err)
		}
		return nil
	})
	if err != nil {
		c.fail(ctx, "load", key, err)
		return cache.Entry{}, false
	}
	return e, fresh
}

// LoadStale decodes the entry under key into dst regardless of age.
// It never evicts.
func (c *CacheStore) LoadStale(ctx context.Context, key string, dst any) bool {
	e, ok := c.entry(ctx, "load_stale", key)
	if !ok {
		return false
	}
	if !c.decode(ctx, "load_stale", key, e, dst) {
		return false
	}
	c.cfg.Metrics.RecordStaleServe(ctx, key)
	return true
}

// IsValid reports whether key holds a fresh entry, without evicting.
func (c *CacheStore) IsValid(ctx context.Context, key string, expiry time.Duration) bool {
	e, ok := c.entry(ctx, "is_valid", key)
	return ok && e.IsFresh(c.cfg.Now(), expiry)
}

// Clear removes key.
func (c *CacheStore) Clear(ctx context.Context, key string) bool {
	err := c.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		return c.db.Remove(ctx, key)
	})
	if err != nil {
		c.fail(ctx, "clear", key, err)
		return false
	}
	return true
}

// ClearMultiple removes keys in one batch.
func (c *CacheStore) ClearMultiple(ctx context.Context, keys []string) bool {
	if err := c.db.RemoveMany(ctx, keys); err != nil {
		c.fail(ctx, "clear_multiple", fmt.Sprint(keys), err)
		return false
	}
	logging.Debug().
		Add(logging.Component(cacheComponent)).
		Add(logging.Keys(len(keys))).
		Msg("cache keys cleared")
	return true
}

// ClearAll removes every recognised cache key. Keys outside the set,
// such as the scan window or per-user documents, are left alone.
func (c *CacheStore) ClearAll(ctx context.Context) bool {
	return c.ClearMultiple(ctx, cache.StorageKeys())
}

// Metadata describes the entry under key without decoding its payload.
func (c *CacheStore) Metadata(ctx context.Context, key string) (*cache.Metadata, bool) {
	e, ok := c.entry(ctx, "metadata", key)
	if !ok {
		return nil, false
	}
	md := cache.MetadataOf(key, e, c.cfg.Now())
	return &md, true
}

// Update rewrites the payload under key with fn's result. The entry keeps
// its timestamp and gains lastUpdated. A missing entry is not created.
func (c *CacheStore) Update(ctx context.Context, key string, fn func(data json.RawMessage) (any, error)) bool {
	var updated bool
	err := c.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		e, found := c.entry(ctx, "update", key)
		if !found {
			return nil
		}

		next, err := fn(e.Data)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		e.Data = raw
		e.LastUpdated = c.cfg.Now().UnixMilli()
		if err := c.db.Set(ctx, key, e); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		c.fail(ctx, "update", key, err)
		return false
	}
	return updated
}

// UpdateAs is Update with a typed payload.
func UpdateAs[T any](ctx context.Context, c *CacheStore, key string, fn func(T) T) bool {
	return c.Update(ctx, key, func(data json.RawMessage) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return fn(v), nil
	})
}

// Preload saves every entry and reports whether all of them landed.
func (c *CacheStore) Preload(ctx context.Context, entries map[string]any) bool {
	ok := true
	for key, data := range entries {
		if !c.Save(ctx, key, data) {
			ok = false
		}
	}
	logging.Debug().
		Add(logging.Component(cacheComponent)).
		Add(logging.Count(len(entries))).
		Msg("cache preloaded")
	return ok
}

// Info returns metadata for every recognised key that holds an entry.
// Keys holding plain values, such as the launch flags, are skipped.
func (c *CacheStore) Info(ctx context.Context) map[string]cache.Metadata {
	out := make(map[string]cache.Metadata)
	now := c.cfg.Now()
	for _, key := range cache.StorageKeys() {
		raw, found, err := c.db.GetRaw(ctx, key)
		if err != nil {
			c.fail(ctx, "info", key, err)
			continue
		}
		var e cache.Entry
		if !found || json.Unmarshal(raw, &e) != nil || !e.Valid() {
			continue
		}
		out[key] = cache.MetadataOf(key, e, now)
	}
	return out
}

// Size reports the bytes stored under recognised keys.
func (c *CacheStore) Size(ctx context.Context) cache.SizeInfo {
	info := cache.SizeInfo{PerKey: make(map[string]int64)}
	for _, key := range cache.StorageKeys() {
		raw, found, err := c.db.GetRaw(ctx, key)
		if err != nil {
			c.fail(ctx, "size", key, err)
			continue
		}
		if !found {
			continue
		}
		n := int64(len(raw))
		info.PerKey[key] = n
		info.TotalBytes += n
		info.KeyCount++
	}
	info.Formatted = cache.FormatBytes(info.TotalBytes)
	return info
}
