package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
)

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// extendScript refreshes the lease only when it still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLock is a leased lock stored in Redis with SET NX PX.
// Each acquisition gets its own token, so a lease that expired and was
// taken by another process is never released by the old holder.
type RedisLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// RedisOption configures a RedisLock.
type RedisOption func(*RedisLock)

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLock) {
		l.keyPrefix = prefix
	}
}

// WithTTL sets the lease used by WithLock.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLock) {
		l.ttl = ttl
	}
}

// NewRedisLock creates a lock over client.
func NewRedisLock(client *redis.Client, opts ...RedisOption) *RedisLock {
	l := &RedisLock{
		client:    client,
		keyPrefix: "plantkeep:",
		ttl:       10 * time.Second,
		tokens:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLock) lockKey(key string) string {
	return l.keyPrefix + "lock:" + key
}

// Acquire implements Lock.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.lockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// Release implements Lock.
func (l *RedisLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return ErrLockNotHeld
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.lockKey(key)}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend implements Lock.
func (l *RedisLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	l.mu.Lock()
	token, ok := l.tokens[key]
	l.mu.Unlock()
	if !ok {
		return ErrLockNotHeld
	}

	n, err := extendScript.Run(ctx, l.client, []string{l.lockKey(key)}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock implements Locker. It polls until the lease is acquired or ctx is
// done. Callers in one process should put a KeyedMutex in front (see Chain)
// because the token map holds one acquisition per key.
func (l *RedisLock) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	acquired, err := AcquireWithRetry(ctx, l, key, l.ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	defer func() {
		// Release on a fresh context so a canceled caller still frees the lease.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Release(rctx, key); err != nil && !errors.Is(err, ErrLockNotHeld) {
			logging.Warn().
				Add(logging.Key(key)).
				Add(logging.ErrorField(err)).
				Msg("failed to release lock")
		}
	}()

	return fn(ctx)
}

// Ensure interface compliance.
var (
	_ Lock   = (*RedisLock)(nil)
	_ Locker = (*RedisLock)(nil)
)
