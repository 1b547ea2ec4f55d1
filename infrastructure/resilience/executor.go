// Package resilience wraps remote fetches with fortify's resilience patterns.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrThrottled is returned when the throttle refuses a call.
var ErrThrottled = errors.New("remote call throttled")

// throttleKey is the single bucket shared by every call through an executor.
const throttleKey = "remote"

// Executor runs remote fetches returning T.
// Composition order: Throttle → Bulkhead → Circuit Breaker → Retry → Timeout.
// Each stage is skipped when its config value is zero.
type Executor[T any] struct {
	limiter  ratelimit.RateLimiter
	bulkhead bulkhead.Bulkhead[T]
	breaker  circuitbreaker.CircuitBreaker[T]
	retry    retry.Retry[T]
	timeout  time.Duration
}

// NewExecutor creates an executor from config.
func NewExecutor[T any](config Config) *Executor[T] {
	e := &Executor[T]{timeout: config.Timeout}

	if config.Rate > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = config.Rate
		}
		e.limiter = ratelimit.New(&ratelimit.Config{
			Rate:  config.Rate,
			Burst: burst,
		})
	}

	if config.MaxConcurrent > 0 {
		e.bulkhead = bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		})
	}

	if config.BreakerThreshold > 0 {
		threshold := uint32(config.BreakerThreshold) // #nosec G115 -- checked positive above
		e.breaker = circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}

	if config.RetryMaxAttempts > 1 {
		multiplier := config.RetryMultiplier
		if multiplier < 1 {
			multiplier = 1
		}
		e.retry = retry.New[T](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    multiplier,
		})
	}

	return e
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor[T any]() *Executor[T] {
	return NewExecutor[T](DefaultConfig())
}

// Execute runs fn with the configured patterns applied.
func (e *Executor[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, throttleKey); err != nil {
			var zero T
			return zero, errors.Join(ErrThrottled, err)
		}
	}

	call := e.withTimeout(fn)

	if e.retry != nil {
		inner := call
		call = func(ctx context.Context) (T, error) {
			return e.retry.Do(ctx, inner)
		}
	}

	if e.breaker != nil {
		inner := call
		call = func(ctx context.Context) (T, error) {
			return e.breaker.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		return e.bulkhead.Execute(ctx, call)
	}
	return call(ctx)
}

func (e *Executor[T]) withTimeout(fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	if e.timeout <= 0 {
		return fn
	}
	return func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return fn(ctx)
	}
}

// CircuitBreakerState returns the breaker state, or closed when no breaker is configured.
func (e *Executor[T]) CircuitBreakerState() circuitbreaker.State {
	if e.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return e.breaker.State()
}
