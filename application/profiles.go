package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/persist"
)

const profileComponent = "profile"

// RoleAdmin marks accounts that do not use the scanner.
const RoleAdmin = "admin"

// SetupInput is the data collected by the first-run setup form.
type SetupInput struct {
	Name            string
	Phone           string
	Location        *plant.Location
	LocationAddress string
}

// SetupStatus reports whether a user may scan and still has to finish setup.
type SetupStatus struct {
	Allowed    bool `json:"allowed"`
	NeedsSetup bool `json:"needsSetup"`
}

// Profiles manages the user_data_<uid> documents.
type Profiles struct {
	db  *persist.Adapter
	cfg Config
}

// NewProfiles creates the profile service over store.
func NewProfiles(store kv.Store, opts ...Option) *Profiles {
	return &Profiles{
		db:  persist.New(store),
		cfg: newConfig(opts),
	}
}

func (p *Profiles) defaultProfile(uid string) collection.Profile {
	var email string
	if u, ok := p.cfg.Users.CurrentUser(); ok && u.ID == uid {
		email = u.Email
	}
	return collection.NewProfile(email, p.cfg.Now())
}

func (p *Profiles) load(ctx context.Context, uid string) (collection.Profile, error) {
	var prof collection.Profile
	found, err := p.db.Get(ctx, collection.ProfileKey(uid), &prof)
	if err != nil {
		return collection.Profile{}, err
	}
	if !found {
		return p.defaultProfile(uid), nil
	}
	if prof.FavoritePlants == nil {
		prof.FavoritePlants = collection.Favorites{}
	}
	if prof.DetectedDiseases == nil {
		prof.DetectedDiseases = []collection.DetectedDisease{}
	}
	return prof, nil
}

func (p *Profiles) read(ctx context.Context, uid string) collection.Profile {
	prof, err := p.load(ctx, uid)
	if err != nil {
		p.cfg.report(ctx, profileComponent, "read", collection.ProfileKey(uid), err)
		return p.defaultProfile(uid)
	}
	return prof
}

// Get returns the stored profile for uid, or a new default profile.
func (p *Profiles) Get(ctx context.Context, uid string) (collection.Profile, error) {
	if uid == "" {
		return collection.Profile{}, collection.ErrNoUser
	}
	return p.read(ctx, uid), nil
}

// Merge applies fn to the profile of uid and writes it back with a fresh
// updatedAt. A failed read aborts without writing.
func (p *Profiles) Merge(ctx context.Context, uid string, fn func(*collection.Profile)) (collection.Profile, error) {
	if uid == "" {
		return collection.Profile{}, collection.ErrNoUser
	}

	key := collection.ProfileKey(uid)
	var out collection.Profile
	err := p.cfg.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		prof, err := p.load(ctx, uid)
		if err != nil {
			p.cfg.report(ctx, profileComponent, "merge", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		fn(&prof)
		now := p.cfg.Now()
		prof.UpdatedAt = &now

		if err := p.db.Set(ctx, key, prof); err != nil {
			p.cfg.report(ctx, profileComponent, "merge", key, err)
			return errors.Join(collection.ErrPersist, err)
		}
		out = prof
		return nil
	})
	return out, err
}

// RecordScan adds the scan's newly seen diseases, bumps total_scans and
// stamps last_scan_at. It returns how many diseases were added.
func (p *Profiles) RecordScan(ctx context.Context, uid string, preds []collection.Prediction) (int, error) {
	var added int
	_, err := p.Merge(ctx, uid, func(prof *collection.Profile) {
		now := p.cfg.Now()
		added = prof.AddDetections(preds, now)
		prof.TotalScans++
		prof.LastScanAt = &now
	})
	if err != nil {
		return 0, err
	}

	logging.Debug().
		Add(logging.Component(profileComponent)).
		Add(logging.UserID(uid)).
		Add(logging.Count(added)).
		Msg("scan recorded on profile")
	return added, nil
}

// DetectedDiseases returns the diseases of uid, newest first.
func (p *Profiles) DetectedDiseases(ctx context.Context, uid string) ([]collection.DetectedDisease, error) {
	prof, err := p.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return prof.DiseasesNewestFirst(), nil
}

// DiseaseStats summarises the diseases of uid.
func (p *Profiles) DiseaseStats(ctx context.Context, uid string) (collection.DiseaseStats, error) {
	prof, err := p.Get(ctx, uid)
	if err != nil {
		return collection.DiseaseStats{}, err
	}
	return prof.Stats(p.cfg.Now()), nil
}

// ClearDetectedDiseases empties the disease list of uid.
func (p *Profiles) ClearDetectedDiseases(ctx context.Context, uid string) error {
	_, err := p.Merge(ctx, uid, func(prof *collection.Profile) {
		prof.DetectedDiseases = []collection.DetectedDisease{}
	})
	return err
}

// UpdateLocation stores the user's position and address.
func (p *Profiles) UpdateLocation(ctx context.Context, uid string, loc plant.Location, address string) error {
	_, err := p.Merge(ctx, uid, func(prof *collection.Profile) {
		prof.Location = &loc
		prof.LocationAddress = address
	})
	return err
}

// CompleteSetup records the first-run setup form.
func (p *Profiles) CompleteSetup(ctx context.Context, uid string, in SetupInput) error {
	_, err := p.Merge(ctx, uid, func(prof *collection.Profile) {
		now := p.cfg.Now()
		prof.Setup = true
		prof.Name = in.Name
		prof.DisplayName = in.Name
		prof.Phone = in.Phone
		prof.Location = in.Location
		prof.LocationAddress = in.LocationAddress
		prof.SetupCompletedAt = &now
	})
	return err
}

// CheckSetup reports whether uid may scan and whether setup is pending.
// Admins are never routed through setup.
func (p *Profiles) CheckSetup(ctx context.Context, uid string) SetupStatus {
	if uid == "" {
		return SetupStatus{Allowed: false, NeedsSetup: true}
	}
	prof := p.read(ctx, uid)
	if prof.Role == RoleAdmin {
		return SetupStatus{Allowed: false, NeedsSetup: false}
	}
	return SetupStatus{
		Allowed:    true,
		NeedsSetup: !prof.Setup || prof.Name == "" || prof.Phone == "",
	}
}

// DeleteAll removes the profile, favorites and scan history of uid.
func (p *Profiles) DeleteAll(ctx context.Context, uid string) error {
	if uid == "" {
		return collection.ErrNoUser
	}

	keys := []string{
		collection.ProfileKey(uid),
		collection.OwnedKey(collection.BaseFavorites, uid),
		collection.OwnedKey(collection.BaseScanHistory, uid),
	}
	if err := p.db.RemoveMany(ctx, keys); err != nil {
		p.cfg.report(ctx, profileComponent, "delete_all", keys[0], err)
		return errors.Join(collection.ErrPersist, err)
	}

	logging.Info().
		Add(logging.Component(profileComponent)).
		Add(logging.UserID(uid)).
		Msg("user data deleted")
	return nil
}
