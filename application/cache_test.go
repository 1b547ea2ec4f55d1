package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/cache"
	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/domain/ratelimit"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/memory"
)

func newCache(t *testing.T) (*application.CacheStore, *memory.Store, *clock) {
	t.Helper()
	store := memory.NewStore()
	clk := newClock(t0)
	return application.NewCacheStore(store, application.WithClock(clk.Now)), store, clk
}

func TestCacheStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, _ := newCache(t)

	plants := []plant.Plant{{ID: "1", CommonName: "Fern"}, {ID: "2", CommonName: "Basil"}}
	require.True(t, c.Save(ctx, cache.KeyPlants, plants))

	var got []plant.Plant
	require.True(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &got))
	require.Equal(t, plants, got)
}

func TestCacheStore_LazyEviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyWeather, map[string]int{"temp": 21}))
	clk.Advance(59 * time.Minute)
	require.True(t, c.IsValid(ctx, cache.KeyWeather, cache.ExpiryWeather))

	clk.Advance(time.Minute)
	require.False(t, c.IsValid(ctx, cache.KeyWeather, cache.ExpiryWeather))
	_, found, _ := store.Get(ctx, cache.KeyWeather)
	require.True(t, found, "IsValid must not evict")

	var v map[string]int
	require.False(t, c.Load(ctx, cache.KeyWeather, cache.ExpiryWeather, &v))
	_, found, _ = store.Get(ctx, cache.KeyWeather)
	require.False(t, found, "expired Load must evict")
}

func TestCacheStore_StaleReads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyPlants, []string{"a"}))
	clk.Advance(48 * time.Hour)

	var stale []string
	require.True(t, c.LoadStale(ctx, cache.KeyPlants, &stale))
	require.Equal(t, []string{"a"}, stale)
	require.True(t, c.LoadStale(ctx, cache.KeyPlants, &stale), "LoadStale must not evict")

	var fresh []string
	require.False(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &fresh))
	require.False(t, c.LoadStale(ctx, cache.KeyPlants, &stale))
}

func TestCacheStore_CustomExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyDiseases, "x", application.WithExpiry(2*time.Hour)))
	clk.Advance(3 * time.Hour)

	var v string
	require.False(t, c.Load(ctx, cache.KeyDiseases, cache.ExpiryDiseases, &v))
}

func TestCacheStore_SaveResetsTimestamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyPlants, 1))
	clk.Advance(20 * time.Hour)
	require.True(t, c.Save(ctx, cache.KeyPlants, 2))
	clk.Advance(20 * time.Hour)

	var v int
	require.True(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &v))
	require.Equal(t, 2, v)
}

func TestCacheStore_CorruptEntryIsAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, _ := newCache(t)

	require.NoError(t, store.Set(ctx, cache.KeyPlants, []byte("{not json")))

	var v []plant.Plant
	require.False(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &v))
	require.False(t, c.LoadStale(ctx, cache.KeyPlants, &v))
	_, ok := c.Metadata(ctx, cache.KeyPlants)
	require.False(t, ok)
}

func TestCacheStore_PayloadMismatchIsAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, _ := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyPlants, "a string"))
	var v []plant.Plant
	require.False(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &v))
}

func TestCacheStore_NonEntryValuesSurviveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, clk := newCache(t)

	favs := application.NewFavorites(store, application.WithClock(clk.Now))
	require.NoError(t, favs.Add(ctx, plant.Plant{ID: "a"}))
	limiter := application.NewScanLimiter(store, application.WithClock(clk.Now))
	limiter.Increment(ctx)
	limiter.Increment(ctx)

	for _, key := range []string{collection.BaseFavorites, ratelimit.StorageKey} {
		var v json.RawMessage
		require.False(t, c.Load(ctx, key, time.Hour, &v), key)
		require.False(t, c.LoadStale(ctx, key, &v), key)
		require.False(t, c.IsValid(ctx, key, time.Hour), key)
		_, ok := c.Metadata(ctx, key)
		require.False(t, ok, key)
		require.False(t, c.Update(ctx, key, func(data json.RawMessage) (any, error) { return data, nil }), key)
	}

	require.Equal(t, []string{"a"}, favs.IDs(ctx))
	require.Equal(t, 2, limiter.CanProceed(ctx).Used)
}

func TestCacheStore_Metadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeyUserLocation, plant.Location{Latitude: 1}, application.WithExpiry(6*time.Hour)))
	clk.Advance(90 * time.Minute)

	md, ok := c.Metadata(ctx, cache.KeyUserLocation)
	require.True(t, ok)
	require.Equal(t, cache.KeyUserLocation, md.Key)
	require.InDelta(t, 1.5, md.AgeHours, 1e-9)
	require.NotNil(t, md.CustomExpiry)
	require.Equal(t, 6.0, *md.CustomExpiry)
	require.Equal(t, cache.EntryVersion, md.Version)
	require.True(t, md.CreatedAt.Equal(t0))

	_, ok = c.Metadata(ctx, cache.KeyWeather)
	require.False(t, ok)
}

func TestCacheStore_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newCache(t)

	require.True(t, c.Save(ctx, cache.KeySearchHistory, []string{"fern"}))
	clk.Advance(time.Hour)

	ok := application.UpdateAs(ctx, c, cache.KeySearchHistory, func(v []string) []string {
		return append(v, "basil")
	})
	require.True(t, ok)

	md, _ := c.Metadata(ctx, cache.KeySearchHistory)
	require.Equal(t, t0.UnixMilli(), md.Timestamp, "Update must keep the timestamp")
	require.Equal(t, t0.Add(time.Hour).UnixMilli(), md.LastUpdated)

	var v []string
	require.True(t, c.Load(ctx, cache.KeySearchHistory, time.Hour+time.Minute, &v))
	require.Equal(t, []string{"fern", "basil"}, v)

	require.False(t, c.Update(ctx, cache.KeyWeather, func(json.RawMessage) (any, error) { return 1, nil }),
		"Update must not create entries")
}

func TestCacheStore_ClearAllKeepsForeignKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, _ := newCache(t)

	require.True(t, c.Preload(ctx, map[string]any{
		cache.KeyPlants:  []int{1},
		cache.KeyWeather: 20,
	}))
	require.NoError(t, store.Set(ctx, ratelimit.StorageKey, []byte(`{"date":"2024-05-01","count":3}`)))
	require.NoError(t, store.Set(ctx, collection.ProfileKey("u1"), []byte(`{}`)))

	require.True(t, c.ClearAll(ctx))

	require.ElementsMatch(t, []string{collection.ProfileKey("u1"), ratelimit.StorageKey}, store.Keys())
}

func TestCacheStore_ClearAndClearMultiple(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, _ := newCache(t)

	for _, k := range []string{cache.KeyPlants, cache.KeyWeather, cache.KeyDiseases} {
		require.True(t, c.Save(ctx, k, 1))
	}
	require.True(t, c.Clear(ctx, cache.KeyPlants))
	require.True(t, c.ClearMultiple(ctx, []string{cache.KeyWeather, cache.KeyDiseases}))
	require.Empty(t, store.Keys())
}

func TestCacheStore_InfoAndSize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, _ := newCache(t)
	flags := application.NewFlags(store)

	require.True(t, c.Save(ctx, cache.KeyPlants, []int{1, 2, 3}))
	require.True(t, c.Save(ctx, cache.KeyWeather, 20))
	require.True(t, flags.SetLoggedIn(ctx, true))

	info := c.Info(ctx)
	require.Len(t, info, 2)
	require.Contains(t, info, cache.KeyPlants)
	require.NotContains(t, info, cache.KeyUserLoggedIn)

	size := c.Size(ctx)
	require.Equal(t, 3, size.KeyCount)
	var total int64
	for _, n := range size.PerKey {
		total += n
	}
	require.Equal(t, total, size.TotalBytes)
	require.Equal(t, cache.FormatBytes(total), size.Formatted)
}

func TestCacheStore_StorageFailuresAreSwallowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("disk full")

	rec := &hookRecorder{}
	store := faultyStore{Store: memory.NewStore(), getErr: boom, setErr: boom, delErr: boom}
	c := application.NewCacheStore(store, application.WithErrorHook(rec.hook))

	var v int
	require.False(t, c.Save(ctx, cache.KeyPlants, 1))
	require.False(t, c.Load(ctx, cache.KeyPlants, cache.ExpiryPlants, &v))
	require.False(t, c.LoadStale(ctx, cache.KeyPlants, &v))
	require.False(t, c.Clear(ctx, cache.KeyPlants))
	require.False(t, c.ClearAll(ctx))

	ops := rec.Ops()
	require.Contains(t, ops, "save")
	require.Contains(t, ops, "load")
	require.Contains(t, ops, "load_stale")
	require.Contains(t, ops, "clear")
	require.Contains(t, ops, "clear_multiple")
}

func TestCacheStore_CancelledContext(t *testing.T) {
	t.Parallel()
	c, _, _ := newCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, c.Save(ctx, cache.KeyPlants, 1))
}
