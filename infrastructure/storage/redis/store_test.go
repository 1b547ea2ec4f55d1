package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

func TestStore_prefixKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		keyPrefix string
		key       string
		expected  string
	}{
		{"default prefix", "plantkeep:", "cached_plants", "plantkeep:kv:cached_plants"},
		{"empty prefix", "", "scan_rate_limit", "kv:scan_rate_limit"},
		{"per-user key", "dev:", "user_data_u1", "dev:kv:user_data_u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewStoreFromClient(nil, tt.keyPrefix)
			if got := s.prefixKey(tt.key); got != tt.expected {
				t.Errorf("prefixKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()

	s := NewStoreFromClient(nil, "test:")
	s.hits.Add(3)
	s.misses.Add(1)

	stats := s.Stats()
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 3 hits 1 miss", stats)
	}
	if stats.Size != -1 {
		t.Errorf("Size = %d, want -1", stats.Size)
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}

	err := wrapError(context.DeadlineExceeded)
	if !errors.Is(err, kv.ErrOperationTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("wrapError(DeadlineExceeded) = %v", err)
	}

	other := errors.New("WRONGTYPE")
	if wrapError(other) != other {
		t.Error("non-timeout errors should pass through")
	}
}

func TestStore_ContextCancellation(t *testing.T) {
	t.Parallel()

	s := NewStoreFromClient(nil, "test:")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete() error = %v, want context.Canceled", err)
	}
	if err := s.DeleteMany(ctx, []string{"k"}); !errors.Is(err, context.Canceled) {
		t.Errorf("DeleteMany() error = %v, want context.Canceled", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Clear() error = %v, want context.Canceled", err)
	}
}

func TestStore_EmptyKeyAndBatch(t *testing.T) {
	t.Parallel()

	s := NewStoreFromClient(nil, "test:")
	if err := s.Set(context.Background(), "", []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
	if err := s.DeleteMany(context.Background(), nil); err != nil {
		t.Errorf("DeleteMany(nil) error = %v", err)
	}
}
