package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics returns a provider backed by its own manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := metric.NewManualReader()
	cfg := DefaultMetricsConfig()
	cfg.Provider = metric.NewMeterProvider(metric.WithReader(reader))

	mp := NewMetricsProvider(cfg)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	t.Cleanup(func() { _ = reader.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_CacheCounters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordCacheHit(ctx, "cached_plants")
	mp.RecordCacheHit(ctx, "cached_plants")
	mp.RecordCacheMiss(ctx, "weather_cache")
	mp.RecordCacheExpired(ctx, "cached_plants", 25*time.Hour)
	mp.RecordStaleServe(ctx, "cached_plants")
	mp.RecordStorageError(ctx, "cached_plants", "save")

	metrics := collect(t, reader)
	want := map[string]int64{
		"plantkeep.cache.hits":           2,
		"plantkeep.cache.misses":         1,
		"plantkeep.cache.expired":        1,
		"plantkeep.cache.stale_serves":   1,
		"plantkeep.cache.storage_errors": 1,
	}
	for name, n := range want {
		m, ok := metrics[name]
		if !ok {
			t.Errorf("%s metric not found", name)
			continue
		}
		if got := sumOf(t, m); got != n {
			t.Errorf("%s = %d, want %d", name, got, n)
		}
	}

	if _, ok := metrics["plantkeep.cache.expired_age"]; !ok {
		t.Error("plantkeep.cache.expired_age metric not found")
	}
}

func TestMetricsProvider_RateLimitHit(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordRateLimitHit(context.Background(), 10, 10)

	m, ok := collect(t, reader)["plantkeep.ratelimit.hits"]
	if !ok {
		t.Fatal("plantkeep.ratelimit.hits metric not found")
	}
	dp := m.Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, _ := dp.Attributes.Value(attribute.Key("ratelimit.limit")); v.AsInt64() != 10 {
		t.Errorf("ratelimit.limit attribute = %v, want 10", v.AsInt64())
	}
}

func TestMetricsProvider_LoadPath(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordLoadTransition(ctx, "cache", "remote")
	mp.RecordLoadTransition(ctx, "remote", "synced")
	mp.RecordRemoteDuration(ctx, "cached_plants", true, 120*time.Millisecond)

	metrics := collect(t, reader)
	if got := sumOf(t, metrics["plantkeep.load.transitions"]); got != 2 {
		t.Errorf("plantkeep.load.transitions = %d, want 2", got)
	}

	hist, ok := metrics["plantkeep.remote.duration"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", metrics["plantkeep.remote.duration"].Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("remote.duration datapoints = %+v", hist.DataPoints)
	}
}

func TestNewMetricsProvider_GlobalFallback(t *testing.T) {
	t.Parallel()

	mp := NewMetricsProvider(MetricsConfig{})
	if mp.Error() != nil {
		t.Errorf("unexpected error: %v", mp.Error())
	}
	mp.RecordCacheHit(context.Background(), "k")
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	ctx := context.Background()
	m.RecordCacheHit(ctx, "k")
	m.RecordCacheMiss(ctx, "k")
	m.RecordCacheExpired(ctx, "k", time.Hour)
	m.RecordStaleServe(ctx, "k")
	m.RecordStorageError(ctx, "k", "load")
	m.RecordRateLimitHit(ctx, 10, 10)
	m.RecordLoadTransition(ctx, "cache", "fresh")
	m.RecordRemoteDuration(ctx, "k", false, time.Second)
}
