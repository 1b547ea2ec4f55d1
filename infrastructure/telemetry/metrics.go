// Package telemetry provides OpenTelemetry metrics for the cache, the
// scan limiter and the load path.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordCacheHit(ctx context.Context, key string)
	RecordCacheMiss(ctx context.Context, key string)
	RecordCacheExpired(ctx context.Context, key string, age time.Duration)
	RecordStaleServe(ctx context.Context, key string)
	RecordStorageError(ctx context.Context, key, operation string)
	RecordRateLimitHit(ctx context.Context, used, limit int)
	RecordLoadTransition(ctx context.Context, fromState, toState string)
	RecordRemoteDuration(ctx context.Context, key string, success bool, duration time.Duration)
}

// MetricsProvider records metrics through an OpenTelemetry meter.
type MetricsProvider struct {
	meter metric.Meter

	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	cacheExpired    metric.Int64Counter
	staleServes     metric.Int64Counter
	storageErrors   metric.Int64Counter
	rateLimitHits   metric.Int64Counter
	loadTransitions metric.Int64Counter

	remoteDuration metric.Float64Histogram
	entryAge       metric.Float64Histogram

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider supplies the meter. Defaults to the global provider.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/plantkeep",
		MeterVersion: "0.1.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) counter(dst *metric.Int64Counter, name, desc, unit string) error {
	c, err := mp.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

func (mp *MetricsProvider) initInstruments() error {
	counters := []struct {
		dst              *metric.Int64Counter
		name, desc, unit string
	}{
		{&mp.cacheHits, "plantkeep.cache.hits", "Fresh cache reads", "{hit}"},
		{&mp.cacheMisses, "plantkeep.cache.misses", "Cache reads that found nothing usable", "{miss}"},
		{&mp.cacheExpired, "plantkeep.cache.expired", "Entries evicted on read because they expired", "{entry}"},
		{&mp.staleServes, "plantkeep.cache.stale_serves", "Expired entries served as an offline fallback", "{serve}"},
		{&mp.storageErrors, "plantkeep.cache.storage_errors", "Storage failures swallowed by the cache", "{error}"},
		{&mp.rateLimitHits, "plantkeep.ratelimit.hits", "Scans refused by the daily limit", "{hit}"},
		{&mp.loadTransitions, "plantkeep.load.transitions", "Load path state transitions", "{transition}"},
	}
	for _, c := range counters {
		if err := mp.counter(c.dst, c.name, c.desc, c.unit); err != nil {
			return err
		}
	}

	var err error
	mp.remoteDuration, err = mp.meter.Float64Histogram(
		"plantkeep.remote.duration",
		metric.WithDescription("Duration of remote fetches"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.entryAge, err = mp.meter.Float64Histogram(
		"plantkeep.cache.expired_age",
		metric.WithDescription("Age of entries at eviction"),
		metric.WithUnit("h"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

func keyAttr(key string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache.key", key))
}

// RecordCacheHit records a fresh read.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, key string) {
	mp.cacheHits.Add(ctx, 1, keyAttr(key))
}

// RecordCacheMiss records a read that found nothing usable.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, key string) {
	mp.cacheMisses.Add(ctx, 1, keyAttr(key))
}

// RecordCacheExpired records a lazy eviction.
func (mp *MetricsProvider) RecordCacheExpired(ctx context.Context, key string, age time.Duration) {
	mp.cacheExpired.Add(ctx, 1, keyAttr(key))
	mp.entryAge.Record(ctx, age.Hours(), keyAttr(key))
}

// RecordStaleServe records an expired entry served offline.
func (mp *MetricsProvider) RecordStaleServe(ctx context.Context, key string) {
	mp.staleServes.Add(ctx, 1, keyAttr(key))
}

// RecordStorageError records a swallowed storage failure.
func (mp *MetricsProvider) RecordStorageError(ctx context.Context, key, operation string) {
	mp.storageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("operation", operation),
	))
}

// RecordRateLimitHit records a refused scan.
func (mp *MetricsProvider) RecordRateLimitHit(ctx context.Context, used, limit int) {
	mp.rateLimitHits.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("ratelimit.used", used),
		attribute.Int("ratelimit.limit", limit),
	))
}

// RecordLoadTransition records a load path transition.
func (mp *MetricsProvider) RecordLoadTransition(ctx context.Context, fromState, toState string) {
	mp.loadTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
	))
}

// RecordRemoteDuration records a remote fetch.
func (mp *MetricsProvider) RecordRemoteDuration(ctx context.Context, key string, success bool, duration time.Duration) {
	mp.remoteDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("cache.key", key),
		attribute.Bool("success", success),
	))
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordCacheHit is a no-op.
func (NoopMetricsProvider) RecordCacheHit(context.Context, string) {}

// RecordCacheMiss is a no-op.
func (NoopMetricsProvider) RecordCacheMiss(context.Context, string) {}

// RecordCacheExpired is a no-op.
func (NoopMetricsProvider) RecordCacheExpired(context.Context, string, time.Duration) {}

// RecordStaleServe is a no-op.
func (NoopMetricsProvider) RecordStaleServe(context.Context, string) {}

// RecordStorageError is a no-op.
func (NoopMetricsProvider) RecordStorageError(context.Context, string, string) {}

// RecordRateLimitHit is a no-op.
func (NoopMetricsProvider) RecordRateLimitHit(context.Context, int, int) {}

// RecordLoadTransition is a no-op.
func (NoopMetricsProvider) RecordLoadTransition(context.Context, string, string) {}

// RecordRemoteDuration is a no-op.
func (NoopMetricsProvider) RecordRemoteDuration(context.Context, string, bool, time.Duration) {}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
