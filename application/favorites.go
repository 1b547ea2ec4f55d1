package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const favoritesComponent = "favorites"

// Favorites manages the signed-in user's favorite plants. The whole map is
// rewritten on every change.
type Favorites struct {
	db  *persist.Adapter
	cfg Config
}

// NewFavorites creates the favorites service over store.
func NewFavorites(store kv.Store, opts ...Option) *Favorites {
	return &Favorites{
		db:  persist.New(store),
		cfg: newConfig(opts),
	}
}

// Key returns the storage key for the current user.
func (f *Favorites) Key() string {
	return collection.OwnedKey(collection.BaseFavorites, f.cfg.ownerID())
}

func (f *Favorites) load(ctx context.Context, key string) (collection.Favorites, error) {
	favs := collection.Favorites{}
	if _, err := f.db.Get(ctx, key, &favs); err != nil {
		return nil, err
	}
	if favs == nil {
		favs = collection.Favorites{}
	}
	return favs, nil
}

func (f *Favorites) read(ctx context.Context, key string) collection.Favorites {
	favs, err := f.load(ctx, key)
	if err != nil {
		f.cfg.report(ctx, favoritesComponent, "read", key, err)
		return collection.Favorites{}
	}
	return favs
}

// mutate applies fn to the stored map under the key's lock and writes it
// back when fn reports a change. A failed read aborts without writing.
func (f *Favorites) mutate(ctx context.Context, op string, fn func(collection.Favorites) (bool, error)) error {
	key := f.Key()
	return f.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		favs, err := f.load(ctx, key)
		if err != nil {
			f.cfg.report(ctx, favoritesComponent, op, key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		changed, err := fn(favs)
		if err != nil || !changed {
			return err
		}
		if err := f.db.Set(ctx, key, favs); err != nil {
			f.cfg.report(ctx, favoritesComponent, op, key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		return nil
	})
}

// All returns every favorite keyed by plant id.
func (f *Favorites) All(ctx context.Context) collection.Favorites {
	return f.read(ctx, f.Key())
}

// List returns favorites oldest first.
func (f *Favorites) List(ctx context.Context) []collection.Favorite {
	return f.All(ctx).Sorted()
}

// IDs returns favorite plant ids oldest first.
func (f *Favorites) IDs(ctx context.Context) []string {
	return f.All(ctx).IDs()
}

// Get returns the favorite for id.
func (f *Favorites) Get(ctx context.Context, id string) (collection.Favorite, bool) {
	fav, ok := f.All(ctx)[id]
	return fav, ok
}

// IsFavorite reports whether id is a favorite.
func (f *Favorites) IsFavorite(ctx context.Context, id string) bool {
	_, ok := f.Get(ctx, id)
	return ok
}

// Add saves p. Adding an existing favorite keeps its original added time.
func (f *Favorites) Add(ctx context.Context, p plant.Plant) error {
	if p.ID == "" {
		return collection.ErrInvalidPlant
	}
	return f.mutate(ctx, "add", func(favs collection.Favorites) (bool, error) {
		if _, ok := favs[p.ID]; ok {
			return false, nil
		}
		favs[p.ID] = collection.Favorite{Plant: p, AddedAt: f.cfg.Now()}
		logging.Info().
			Add(logging.Component(favoritesComponent)).
			Add(logging.PlantID(p.ID)).
			Msg("favorite added")
		return true, nil
	})
}

// Remove deletes the favorite for id.
func (f *Favorites) Remove(ctx context.Context, id string) error {
	if id == "" {
		return collection.ErrInvalidPlant
	}
	return f.mutate(ctx, "remove", func(favs collection.Favorites) (bool, error) {
		if _, ok := favs[id]; !ok {
			return false, fmt.Errorf("%w: %s", collection.ErrNotFavorite, id)
		}
		delete(favs, id)
		logging.Info().
			Add(logging.Component(favoritesComponent)).
			Add(logging.PlantID(id)).
			Msg("favorite removed")
		return true, nil
	})
}

// Toggle adds p when absent and removes it when present. It reports
// whether p is a favorite afterwards.
func (f *Favorites) Toggle(ctx context.Context, p plant.Plant) (bool, error) {
	if p.ID == "" {
		return false, collection.ErrInvalidPlant
	}
	var added bool
	err := f.mutate(ctx, "toggle", func(favs collection.Favorites) (bool, error) {
		if _, ok := favs[p.ID]; ok {
			delete(favs, p.ID)
		} else {
			favs[p.ID] = collection.Favorite{Plant: p, AddedAt: f.cfg.Now()}
			added = true
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}

	branch := "removed"
	if added {
		branch = "added"
	}
	logging.Info().
		Add(logging.Component(favoritesComponent)).
		Add(logging.PlantID(p.ID)).
		Add(logging.Operation(branch)).
		Msg("favorite toggled")
	return added, nil
}

// Clear removes every favorite of the current user.
func (f *Favorites) Clear(ctx context.Context) error {
	key := f.Key()
	return f.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		if err := f.db.Remove(ctx, key); err != nil {
			f.cfg.report(ctx, favoritesComponent, "clear", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		return nil
	})
}
