// Package collection provides the user-owned documents kept on the device:
// favorites, scan history and the user profile.
package collection

import (
	"errors"
	"sort"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

// Base storage keys. Authenticated users get "<base>_<uid>".
const (
	BaseFavorites   = "plant_favorites"
	BaseScanHistory = "scan_history"
	ProfilePrefix   = "user_data_"
)

// DefaultHistoryCapacity is the number of scans kept in history.
const DefaultHistoryCapacity = 50

// Domain errors for collection operations.
var (
	// ErrInvalidPlant is returned when a plant has no identifier.
	ErrInvalidPlant = errors.New("plant id is required")

	// ErrNotFavorite is returned when removing a plant that is not a favorite.
	ErrNotFavorite = errors.New("plant is not a favorite")

	// ErrNoUser is returned when a per-user document is requested without a user id.
	ErrNoUser = errors.New("user id is required")

	// ErrPersist is returned when a collection could not be written.
	ErrPersist = errors.New("collection write failed")
)

// OwnedKey returns the storage key of a collection for uid.
// The guest scope (empty uid) uses the base key.
func OwnedKey(base, uid string) string {
	if uid == "" {
		return base
	}
	return base + "_" + uid
}

// ProfileKey returns the storage key of the profile document for uid.
func ProfileKey(uid string) string {
	return ProfilePrefix + uid
}

// Favorite is a plant saved by the user.
type Favorite struct {
	plant.Plant
	AddedAt time.Time `json:"added_to_favorites_at"`
}

// Favorites maps plant ids to favorites.
type Favorites map[string]Favorite

// Sorted returns favorites ordered by the time they were added, oldest first.
func (f Favorites) Sorted() []Favorite {
	out := make([]Favorite, 0, len(f))
	for _, fav := range f {
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// IDs returns the favorite plant ids in insertion order.
func (f Favorites) IDs() []string {
	sorted := f.Sorted()
	ids := make([]string, len(sorted))
	for i, fav := range sorted {
		ids[i] = fav.ID
	}
	return ids
}

// Prediction is one classifier result for a scanned image.
type Prediction struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// Scan statuses that count as a finished inference.
const (
	ScanComplete      = "complete"
	ScanInferenceDone = "inference_done"
	ScanFailed        = "failed"
)

// ScanEntry is one scan in the history list.
type ScanEntry struct {
	ID          string       `json:"id"`
	Predictions []Prediction `json:"predictions"`
	ImageURI    string       `json:"imageUri,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Status      string       `json:"status"`
	UploadID    string       `json:"uploadId,omitempty"`
}

// Finished reports whether the scan produced predictions worth recording.
func (s ScanEntry) Finished() bool {
	return s.Status == ScanComplete || s.Status == ScanInferenceDone
}

// History is the newest-first list of scans.
type History []ScanEntry

// Prepend inserts e at the head and drops the oldest entries beyond capacity.
func (h History) Prepend(e ScanEntry, capacity int) History {
	out := make(History, 0, len(h)+1)
	out = append(out, e)
	out = append(out, h...)
	if capacity > 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}
