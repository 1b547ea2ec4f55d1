package application_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var errTest = errors.New("test failure")

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *clock {
	return &clock{now: at}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// faultyStore fails the operations whose error is set.
type faultyStore struct {
	kv.Store
	getErr error
	setErr error
	delErr error
}

func (f faultyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f faultyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func (f faultyStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, key)
}

// failingLocker refuses every lock.
type failingLocker struct {
	err error
}

func (f failingLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return f.err
}

// hookRecorder collects swallowed failures.
type hookRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (h *hookRecorder) hook(_ context.Context, op, _ string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
}

func (h *hookRecorder) Ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ops...)
}
