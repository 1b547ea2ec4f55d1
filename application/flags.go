package application

import (
	"context"

	"github.com/felixgeelhaar/plantkeep/domain/cache"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const flagsComponent = "flags"

// KeyHasLaunched marks that onboarding was shown.
const KeyHasLaunched = "has_launched"

// flagTrue is the stored value of a set flag.
const flagTrue = "true"

// Flags stores the launch and login markers as the JSON string "true".
type Flags struct {
	db  *persist.Adapter
	cfg Config
}

// NewFlags creates the flags service over store.
func NewFlags(store kv.Store, opts ...Option) *Flags {
	return &Flags{
		db:  persist.New(store),
		cfg: newConfig(opts),
	}
}

func (f *Flags) get(ctx context.Context, key string) bool {
	var v string
	found, err := f.db.Get(ctx, key, &v)
	if err != nil {
		f.cfg.report(ctx, flagsComponent, "get", key, err)
		return false
	}
	return found && v == flagTrue
}

func (f *Flags) set(ctx context.Context, key string, on bool) bool {
	var err error
	if on {
		err = f.db.Set(ctx, key, flagTrue)
	} else {
		err = f.db.Remove(ctx, key)
	}
	if err != nil {
		f.cfg.report(ctx, flagsComponent, "set", key, err)
		return false
	}
	return true
}

// IsFirstLaunch reports whether the app has never been launched.
func (f *Flags) IsFirstLaunch(ctx context.Context) bool {
	return !f.get(ctx, KeyHasLaunched) && !f.get(ctx, cache.KeyFirstLaunch)
}

// MarkLaunched records that the app has been launched.
func (f *Flags) MarkLaunched(ctx context.Context) bool {
	a := f.set(ctx, KeyHasLaunched, true)
	b := f.set(ctx, cache.KeyFirstLaunch, true)
	return a && b
}

// IsLoggedIn reports the stored login marker.
func (f *Flags) IsLoggedIn(ctx context.Context) bool {
	return f.get(ctx, cache.KeyUserLoggedIn)
}

// SetLoggedIn stores or clears the login marker.
func (f *Flags) SetLoggedIn(ctx context.Context, on bool) bool {
	return f.set(ctx, cache.KeyUserLoggedIn, on)
}
