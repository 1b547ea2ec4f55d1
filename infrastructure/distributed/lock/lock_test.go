package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestKeyedMutex_Serializes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewKeyedMutex()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock(ctx, "scan_rate_limit", func(context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen.Load())
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after all released, want 0", m.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewKeyedMutex()

	done := make(chan struct{})
	err := m.WithLock(ctx, "a", func(ctx context.Context) error {
		go func() {
			_ = m.WithLock(ctx, "b", func(context.Context) error { return nil })
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(time.Second):
			return errors.New("key b blocked by key a")
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestKeyedMutex_ContextCanceled(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	called := false
	err := m.WithLock(ctx, "k", func(context.Context) error {
		called = true
		return nil
	})
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WithLock() error = %v, want DeadlineExceeded", err)
	}
	if called {
		t.Error("fn should not run when the lock was never acquired")
	}
}

func TestKeyedMutex_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := NewKeyedMutex().WithLock(context.Background(), "k", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("WithLock() error = %v, want boom", err)
	}
}

type recordingLocker struct {
	name string
	log  *[]string
}

func (r recordingLocker) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	*r.log = append(*r.log, "lock "+r.name)
	err := fn(ctx)
	*r.log = append(*r.log, "unlock "+r.name)
	return err
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var log []string
	c := Chain{recordingLocker{"local", &log}, recordingLocker{"remote", &log}}
	_ = c.WithLock(context.Background(), "k", func(context.Context) error {
		log = append(log, "work")
		return nil
	})

	want := []string{"lock local", "lock remote", "work", "unlock remote", "unlock local"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

type flakyLock struct {
	failures int
	calls    int
}

func (f *flakyLock) Acquire(context.Context, string, time.Duration) (bool, error) {
	f.calls++
	return f.calls > f.failures, nil
}
func (f *flakyLock) Release(context.Context, string) error              { return nil }
func (f *flakyLock) Extend(context.Context, string, time.Duration) error { return nil }

func TestAcquireWithRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	l := &flakyLock{failures: 2}
	var acquiredKey string
	ok, err := AcquireWithRetry(ctx, l, "k", time.Second,
		WithRetryInterval(time.Millisecond),
		WithOnAcquire(func(key string) { acquiredKey = key }),
	)
	if err != nil || !ok {
		t.Fatalf("AcquireWithRetry() = %v, %v", ok, err)
	}
	if l.calls != 3 || acquiredKey != "k" {
		t.Errorf("calls = %d, acquiredKey = %s", l.calls, acquiredKey)
	}

	ok, err = AcquireWithRetry(ctx, &flakyLock{failures: 10}, "k", time.Second,
		WithRetryInterval(time.Millisecond), WithMaxRetries(2))
	if ok || err != nil {
		t.Errorf("AcquireWithRetry() with exhausted retries = %v, %v", ok, err)
	}
}

// TestRedisLock_Integration runs against a live server when PLANTKEEP_REDIS_ADDR is set.
func TestRedisLock_Integration(t *testing.T) {
	addr := os.Getenv("PLANTKEEP_REDIS_ADDR")
	if addr == "" {
		t.Skip("PLANTKEEP_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	l1 := NewRedisLock(client, WithKeyPrefix("plantkeep-test:"), WithTTL(time.Second))
	l2 := NewRedisLock(client, WithKeyPrefix("plantkeep-test:"), WithTTL(time.Second))

	ok, err := l1.Acquire(ctx, "k", time.Second)
	if err != nil || !ok {
		t.Fatalf("Acquire() = %v, %v", ok, err)
	}
	if ok, _ := l2.Acquire(ctx, "k", time.Second); ok {
		t.Error("second holder should not acquire")
	}
	if err := l2.Release(ctx, "k"); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("Release() by non-holder error = %v", err)
	}
	if err := l1.Extend(ctx, "k", 2*time.Second); err != nil {
		t.Errorf("Extend() error = %v", err)
	}
	if err := l1.Release(ctx, "k"); err != nil {
		t.Errorf("Release() error = %v", err)
	}

	ran := false
	if err := l2.WithLock(ctx, "k", func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Errorf("WithLock() = %v, ran = %v", err, ran)
	}
}

func TestRedisLock_InvalidTTL(t *testing.T) {
	t.Parallel()

	l := NewRedisLock(nil)
	if _, err := l.Acquire(context.Background(), "k", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Acquire(0) error = %v, want ErrInvalidTTL", err)
	}
	if err := l.Release(context.Background(), "k"); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("Release() error = %v, want ErrLockNotHeld", err)
	}
}
