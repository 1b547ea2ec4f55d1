// Package lock provides per-key mutual exclusion, in-process and across
// processes sharing a Redis backend.
package lock

import (
	"context"
	"errors"
	"time"
)

// Lock defines the interface for leased, owner-checked locks.
type Lock interface {
	// Acquire attempts to acquire the lock.
	// Returns true if the lock was acquired, false if already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases the lock.
	Release(ctx context.Context, key string) error

	// Extend extends the TTL of a held lock.
	Extend(ctx context.Context, key string, ttl time.Duration) error
}

// Locker serializes work on a key.
type Locker interface {
	// WithLock runs fn while holding the lock for key, blocking until the
	// lock is free or ctx is done. The lock is released when fn returns.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Common errors.
var (
	ErrLockNotHeld = errors.New("lock not held")
	ErrLockHeld    = errors.New("lock already held by another owner")
	ErrInvalidTTL  = errors.New("invalid TTL")
)

// LockOption configures lock acquisition.
type LockOption func(*lockOptions)

type lockOptions struct {
	retryInterval time.Duration
	maxRetries    int
	onAcquire     func(key string)
}

// WithRetryInterval sets the interval between lock acquisition retries.
func WithRetryInterval(interval time.Duration) LockOption {
	return func(o *lockOptions) {
		o.retryInterval = interval
	}
}

// WithMaxRetries sets the maximum number of acquisition retries.
// A negative value retries until the context is done.
func WithMaxRetries(max int) LockOption {
	return func(o *lockOptions) {
		o.maxRetries = max
	}
}

// WithOnAcquire sets a callback for successful lock acquisition.
func WithOnAcquire(fn func(key string)) LockOption {
	return func(o *lockOptions) {
		o.onAcquire = fn
	}
}

// AcquireWithRetry polls lock until it is acquired, retries run out, or ctx is done.
func AcquireWithRetry(ctx context.Context, lock Lock, key string, ttl time.Duration, opts ...LockOption) (bool, error) {
	options := &lockOptions{
		retryInterval: 25 * time.Millisecond,
		maxRetries:    -1,
	}
	for _, opt := range opts {
		opt(options)
	}

	for i := 0; options.maxRetries < 0 || i <= options.maxRetries; i++ {
		acquired, err := lock.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			if options.onAcquire != nil {
				options.onAcquire(key)
			}
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(options.retryInterval):
		}
	}
	return false, nil
}

// Chain holds several lockers in order, releasing them in reverse.
type Chain []Locker

// WithLock implements Locker.
func (c Chain) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if len(c) == 0 {
		return fn(ctx)
	}
	return c[0].WithLock(ctx, key, func(ctx context.Context) error {
		return c[1:].WithLock(ctx, key, fn)
	})
}
