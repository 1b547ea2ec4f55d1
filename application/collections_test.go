package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/domain/user"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/memory"
)

func TestFavorites_TogglePair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := application.NewFavorites(memory.NewStore())

	require.NoError(t, f.Add(ctx, plant.Plant{ID: "keep"}))
	before := f.All(ctx)

	p := plant.Plant{ID: "42", CommonName: "Monstera"}
	added, err := f.Toggle(ctx, p)
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, f.IsFavorite(ctx, "42"))

	added, err = f.Toggle(ctx, p)
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, before, f.All(ctx))
}

func TestFavorites_AddKeepsOriginalTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(t0)
	f := application.NewFavorites(memory.NewStore(), application.WithClock(clk.Now))

	require.NoError(t, f.Add(ctx, plant.Plant{ID: "a"}))
	clk.Advance(time.Hour)
	require.NoError(t, f.Add(ctx, plant.Plant{ID: "a", CommonName: "renamed"}))
	require.NoError(t, f.Add(ctx, plant.Plant{ID: "b"}))

	fav, ok := f.Get(ctx, "a")
	require.True(t, ok)
	require.True(t, fav.AddedAt.Equal(t0))
	require.Empty(t, fav.CommonName)
	require.Equal(t, []string{"a", "b"}, f.IDs(ctx))
	require.Len(t, f.List(ctx), 2)
}

func TestFavorites_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := application.NewFavorites(memory.NewStore())

	require.ErrorIs(t, f.Add(ctx, plant.Plant{}), collection.ErrInvalidPlant)
	require.ErrorIs(t, f.Remove(ctx, "missing"), collection.ErrNotFavorite)
	_, err := f.Toggle(ctx, plant.Plant{})
	require.ErrorIs(t, err, collection.ErrInvalidPlant)

	broken := application.NewFavorites(faultyStore{Store: memory.NewStore(), setErr: errors.New("quota")})
	require.ErrorIs(t, broken.Add(ctx, plant.Plant{ID: "x"}), collection.ErrPersist)
}

func TestFavorites_PerUserKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()

	guest := application.NewFavorites(store)
	alice := application.NewFavorites(store, application.WithUsers(user.Static{ID: "alice"}))
	require.Equal(t, "plant_favorites", guest.Key())
	require.Equal(t, "plant_favorites_alice", alice.Key())

	require.NoError(t, alice.Add(ctx, plant.Plant{ID: "1"}))
	require.False(t, guest.IsFavorite(ctx, "1"))
	require.True(t, alice.IsFavorite(ctx, "1"))

	require.NoError(t, alice.Clear(ctx))
	require.Empty(t, alice.All(ctx))
}

func TestFavorites_ReadFailureIsEmpty(t *testing.T) {
	t.Parallel()

	f := application.NewFavorites(faultyStore{Store: memory.NewStore(), getErr: errors.New("io")})
	require.Empty(t, f.All(context.Background()))
}

func TestFavorites_ReadFailureAbortsMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()
	f := application.NewFavorites(store)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.Add(ctx, plant.Plant{ID: id}))
	}
	before := f.All(ctx)

	broken := application.NewFavorites(faultyStore{Store: store, getErr: errTest})
	tests := []struct {
		name string
		op   func() error
	}{
		{"add", func() error { return broken.Add(ctx, plant.Plant{ID: "d"}) }},
		{"remove", func() error { return broken.Remove(ctx, "a") }},
		{"toggle", func() error { _, err := broken.Toggle(ctx, plant.Plant{ID: "b"}); return err }},
	}
	for _, tt := range tests {
		err := tt.op()
		require.ErrorIs(t, err, collection.ErrPersist, tt.name)
		require.ErrorIs(t, err, errTest, tt.name)
		require.Equal(t, before, f.All(ctx), tt.name)
	}
}

func TestScanHistory_Cap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := application.NewScanHistory(memory.NewStore())
	require.Equal(t, collection.DefaultHistoryCapacity, h.Capacity())

	total := collection.DefaultHistoryCapacity + 7
	for i := 0; i < total; i++ {
		_, err := h.Append(ctx, collection.ScanEntry{ID: fmt.Sprint(i)})
		require.NoError(t, err)
	}

	all := h.All(ctx)
	require.Len(t, all, collection.DefaultHistoryCapacity)
	for i, e := range all {
		require.Equal(t, fmt.Sprint(total-1-i), e.ID)
	}
}

func TestScanHistory_StampsEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := application.NewScanHistory(memory.NewStore(),
		application.WithClock(newClock(t0).Now),
		application.WithCapacity(2),
		application.WithUsers(user.Static{ID: "u1"}),
	)
	require.Equal(t, "scan_history_u1", h.Key())

	e, err := h.Append(ctx, collection.ScanEntry{Status: collection.ScanComplete})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.True(t, e.Timestamp.Equal(t0))

	for i := 0; i < 3; i++ {
		_, err := h.Append(ctx, collection.ScanEntry{})
		require.NoError(t, err)
	}
	require.Len(t, h.All(ctx), 2)

	require.NoError(t, h.Clear(ctx))
	require.Empty(t, h.All(ctx))
}

func TestScanHistory_ReadFailureAbortsAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()
	h := application.NewScanHistory(store)
	for i := 0; i < 5; i++ {
		_, err := h.Append(ctx, collection.ScanEntry{ID: fmt.Sprint(i)})
		require.NoError(t, err)
	}

	broken := application.NewScanHistory(faultyStore{Store: store, getErr: errTest})
	_, err := broken.Append(ctx, collection.ScanEntry{ID: "new"})
	require.ErrorIs(t, err, collection.ErrPersist)
	require.ErrorIs(t, err, errTest)

	all := h.All(ctx)
	require.Len(t, all, 5)
	require.Equal(t, "4", all[0].ID)
}

func TestProfiles_ReadFailureAbortsMerge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()
	p := application.NewProfiles(store, application.WithClock(newClock(t0).Now))
	_, err := p.RecordScan(ctx, "u1", []collection.Prediction{{ClassName: "rust", Confidence: 0.9}})
	require.NoError(t, err)
	_, err = p.RecordScan(ctx, "u1", []collection.Prediction{{ClassName: "blight", Confidence: 0.6}})
	require.NoError(t, err)

	broken := application.NewProfiles(faultyStore{Store: store, getErr: errTest})
	_, err = broken.RecordScan(ctx, "u1", []collection.Prediction{{ClassName: "mildew"}})
	require.ErrorIs(t, err, collection.ErrPersist)
	require.ErrorIs(t, err, errTest)
	require.ErrorIs(t, broken.ClearDetectedDiseases(ctx, "u1"), collection.ErrPersist)

	prof, err := p.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, prof.TotalScans)
	require.Len(t, prof.DetectedDiseases, 2)
}

func TestProfiles_DefaultDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := application.NewProfiles(memory.NewStore(),
		application.WithUsers(user.Static{ID: "u1", Email: "u1@example.com"}))

	prof, err := p.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1@example.com", prof.Email)
	require.Equal(t, "user", prof.Role)
	require.NotNil(t, prof.FavoritePlants)
	require.NotNil(t, prof.DetectedDiseases)

	_, err = p.Get(ctx, "")
	require.ErrorIs(t, err, collection.ErrNoUser)
}

func TestProfiles_RecordScan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock(t0)
	p := application.NewProfiles(memory.NewStore(), application.WithClock(clk.Now))

	n, err := p.RecordScan(ctx, "u1", []collection.Prediction{
		{ClassName: "leaf_rust", Confidence: 0.92},
		{ClassName: "powdery_mildew", Confidence: 0.4},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	clk.Advance(time.Hour)
	n, err = p.RecordScan(ctx, "u1", []collection.Prediction{{ClassName: "blight", Confidence: 0.85}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	prof, _ := p.Get(ctx, "u1")
	require.Equal(t, 2, prof.TotalScans)
	require.NotNil(t, prof.LastScanAt)
	require.True(t, prof.LastScanAt.Equal(t0.Add(time.Hour)))
	require.NotNil(t, prof.UpdatedAt)

	diseases, err := p.DetectedDiseases(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "blight", diseases[0].DiseaseName)

	stats, err := p.DiseaseStats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, collection.DiseaseStats{Total: 3, LastThirtyDays: 3, HighConfidence: 2}, stats)

	require.NoError(t, p.ClearDetectedDiseases(ctx, "u1"))
	diseases, _ = p.DetectedDiseases(ctx, "u1")
	require.Empty(t, diseases)
}

func TestProfiles_Setup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := application.NewProfiles(memory.NewStore(), application.WithClock(newClock(t0).Now))

	require.Equal(t, application.SetupStatus{Allowed: true, NeedsSetup: true}, p.CheckSetup(ctx, "u1"))
	require.Equal(t, application.SetupStatus{Allowed: false, NeedsSetup: true}, p.CheckSetup(ctx, ""))

	loc := &plant.Location{Latitude: 52.5, Longitude: 13.4}
	require.NoError(t, p.CompleteSetup(ctx, "u1", application.SetupInput{Name: "Ada", Phone: "123", Location: loc}))
	require.Equal(t, application.SetupStatus{Allowed: true, NeedsSetup: false}, p.CheckSetup(ctx, "u1"))

	prof, _ := p.Get(ctx, "u1")
	require.Equal(t, "Ada", prof.DisplayName)
	require.NotNil(t, prof.SetupCompletedAt)

	require.NoError(t, p.UpdateLocation(ctx, "u1", plant.Location{Latitude: 1}, "Somewhere"))
	prof, _ = p.Get(ctx, "u1")
	require.Equal(t, "Somewhere", prof.LocationAddress)

	_, err := p.Merge(ctx, "admin", func(prof *collection.Profile) { prof.Role = application.RoleAdmin })
	require.NoError(t, err)
	require.Equal(t, application.SetupStatus{}, p.CheckSetup(ctx, "admin"))
}

func TestProfiles_DeleteAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()
	u := application.WithUsers(user.Static{ID: "u1"})

	p := application.NewProfiles(store, u)
	f := application.NewFavorites(store, u)
	h := application.NewScanHistory(store, u)

	_, err := p.RecordScan(ctx, "u1", nil)
	require.NoError(t, err)
	require.NoError(t, f.Add(ctx, plant.Plant{ID: "1"}))
	_, err = h.Append(ctx, collection.ScanEntry{})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "other", []byte(`1`)))

	require.NoError(t, p.DeleteAll(ctx, "u1"))
	require.Equal(t, []string{"other"}, store.Keys())
	require.ErrorIs(t, p.DeleteAll(ctx, ""), collection.ErrNoUser)
}

func TestFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := application.NewFlags(memory.NewStore())

	require.True(t, f.IsFirstLaunch(ctx))
	require.True(t, f.MarkLaunched(ctx))
	require.False(t, f.IsFirstLaunch(ctx))

	require.False(t, f.IsLoggedIn(ctx))
	require.True(t, f.SetLoggedIn(ctx, true))
	require.True(t, f.IsLoggedIn(ctx))
	require.True(t, f.SetLoggedIn(ctx, false))
	require.False(t, f.IsLoggedIn(ctx))
}
