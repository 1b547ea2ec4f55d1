package application

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const historyComponent = "history"

// ScanHistory keeps the newest-first list of scans for the current user,
// capped at the configured capacity.
type ScanHistory struct {
	db  *persist.Adapter
	cfg Config
}

// NewScanHistory creates the history service over store.
func NewScanHistory(store kv.Store, opts ...Option) *ScanHistory {
	return &ScanHistory{
		db:  persist.New(store),
		cfg: newConfig(opts),
	}
}

// Key returns the storage key for the current user.
func (h *ScanHistory) Key() string {
	return collection.OwnedKey(collection.BaseScanHistory, h.cfg.ownerID())
}

// Capacity returns the maximum number of retained scans.
func (h *ScanHistory) Capacity() int {
	return h.cfg.HistoryCapacity
}

func (h *ScanHistory) load(ctx context.Context, key string) (collection.History, error) {
	var hist collection.History
	if _, err := h.db.Get(ctx, key, &hist); err != nil {
		return nil, err
	}
	if hist == nil {
		hist = collection.History{}
	}
	return hist, nil
}

func (h *ScanHistory) read(ctx context.Context, key string) collection.History {
	hist, err := h.load(ctx, key)
	if err != nil {
		h.cfg.report(ctx, historyComponent, "read", key, err)
		return collection.History{}
	}
	return hist
}

// All returns the history, newest first.
func (h *ScanHistory) All(ctx context.Context) collection.History {
	return h.read(ctx, h.Key())
}

// Append inserts e at the head, filling in a missing id and timestamp,
// and drops the oldest scans beyond capacity. It returns the stored entry.
func (h *ScanHistory) Append(ctx context.Context, e collection.ScanEntry) (collection.ScanEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = h.cfg.Now()
	}

	key := h.Key()
	err := h.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		hist, err := h.load(ctx, key)
		if err != nil {
			h.cfg.report(ctx, historyComponent, "append", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		hist = hist.Prepend(e, h.cfg.HistoryCapacity)
		if err := h.db.Set(ctx, key, hist); err != nil {
			h.cfg.report(ctx, historyComponent, "append", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		logging.Debug().
			Add(logging.Component(historyComponent)).
			Add(logging.Key(key)).
			Add(logging.Count(len(hist))).
			Msg("scan recorded")
		return nil
	})
	if err != nil {
		return collection.ScanEntry{}, err
	}
	return e, nil
}

// Clear removes the current user's history.
func (h *ScanHistory) Clear(ctx context.Context) error {
	key := h.Key()
	return h.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		if err := h.db.Remove(ctx, key); err != nil {
			h.cfg.report(ctx, historyComponent, "clear", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		return nil
	})
}
