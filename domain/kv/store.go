// Package kv provides the domain interface for key-value persistence.
package kv

import "context"

// Store defines the interface for durable key-value storage.
// Implementations may be in-memory, on disk, or any networked backend.
// Stores never expire entries on their own; freshness is decided by callers.
type Store interface {
	// Get retrieves a value by key.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under the given key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

// BatchDeleter is an optional interface for stores that can remove
// several keys in one round trip.
type BatchDeleter interface {
	DeleteMany(ctx context.Context, keys []string) error
}

// Closer is implemented by stores holding connections or file handles.
type Closer interface {
	Close() error
}

// Stats provides store statistics.
type Stats struct {
	// Hits is the number of reads that found a value.
	Hits int64
	// Misses is the number of reads that found nothing.
	Misses int64
	// Size is the current number of entries, or -1 when unknown.
	Size int64
}

// StatsProvider is an optional interface for stores that support statistics.
type StatsProvider interface {
	Stats() Stats
}

// DeleteMany removes keys using the store's batch path when it has one.
func DeleteMany(ctx context.Context, s Store, keys []string) error {
	if b, ok := s.(BatchDeleter); ok {
		return b.DeleteMany(ctx, keys)
	}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
