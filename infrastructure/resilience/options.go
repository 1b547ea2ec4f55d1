package resilience

import (
	"time"

	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
)

// Config configures an Executor. A zero value disables the matching stage.
type Config struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxConcurrent limits concurrent calls.
	MaxConcurrent int

	// BreakerThreshold is the number of consecutive failures before opening.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts, including the first.
	RetryMaxAttempts int

	// RetryInitialDelay is the delay before the first retry.
	RetryInitialDelay time.Duration

	// RetryMultiplier is the exponential backoff multiplier.
	RetryMultiplier float64

	// Rate is the number of calls per second let through.
	Rate int

	// Burst is the throttle bucket size.
	Burst int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		MaxConcurrent:     4,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 200 * time.Millisecond,
		RetryMultiplier:   2.0,
	}
}

// FromConfig converts the file configuration; disabled sections become zero.
func FromConfig(rc domainconfig.ResilienceConfig) Config {
	c := Config{Timeout: rc.Timeout.Duration()}
	if rc.Bulkhead.Enabled {
		c.MaxConcurrent = rc.Bulkhead.MaxConcurrent
	}
	if rc.CircuitBreaker.Enabled {
		c.BreakerThreshold = rc.CircuitBreaker.Threshold
		c.BreakerTimeout = rc.CircuitBreaker.Timeout.Duration()
	}
	if rc.Retry.Enabled {
		c.RetryMaxAttempts = rc.Retry.MaxAttempts
		c.RetryInitialDelay = rc.Retry.InitialDelay.Duration()
		c.RetryMultiplier = rc.Retry.Multiplier
	}
	if rc.RateLimit.Enabled {
		c.Rate = rc.RateLimit.Rate
		c.Burst = rc.RateLimit.Burst
	}
	return c
}

// Option configures the executor.
type Option func(*Config)

// WithMaxConcurrent sets the maximum concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreaker sets the breaker threshold and open duration.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) {
		c.BreakerThreshold = threshold
		c.BreakerTimeout = timeout
	}
}

// WithRetry sets the attempt count and initial delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Config) {
		c.RetryMaxAttempts = attempts
		c.RetryInitialDelay = delay
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithThrottle sets the token bucket rate and burst.
func WithThrottle(rate, burst int) Option {
	return func(c *Config) {
		c.Rate = rate
		c.Burst = burst
	}
}

// NewExecutorWithOptions creates an executor from defaults plus opts.
func NewExecutorWithOptions[T any](opts ...Option) *Executor[T] {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor[T](config)
}
