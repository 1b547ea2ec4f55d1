// Package persist stores JSON documents in a kv.Store.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
)

// Adapter encodes values as JSON on the way into a store and decodes them on
// the way out. It has no multi-key transactions; same-key writes are
// last-write-wins.
type Adapter struct {
	store kv.Store
}

// New creates an adapter over store.
func New(store kv.Store) *Adapter {
	return &Adapter{store: store}
}

// Store returns the underlying store.
func (a *Adapter) Store() kv.Store {
	return a.store
}

// Set JSON-encodes value and writes it under key.
func (a *Adapter) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return a.store.Set(ctx, key, data)
}

// Get decodes the value under key into dst.
// A missing key and an unparseable value both report false with a nil error;
// the latter is logged. Backend failures are returned.
func (a *Adapter) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, found, err := a.store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logging.Warn().
			Add(logging.Key(key)).
			Add(logging.Bytes(len(data))).
			Add(logging.ErrorField(err)).
			Msg("discarding unparseable stored value")
		return false, nil
	}
	return true, nil
}

// GetRaw returns the stored bytes without decoding.
func (a *Adapter) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	return a.store.Get(ctx, key)
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.store.Delete(ctx, key)
}

// RemoveMany deletes keys, in one round trip when the store supports it.
func (a *Adapter) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return kv.DeleteMany(ctx, a.store, keys)
}

// Clear removes every key in the store.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.store.Clear(ctx)
}
