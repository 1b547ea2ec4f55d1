package cache

import "time"

// Storage keys recognised by the cache.
const (
	KeyUserLoggedIn    = "user_logged_in"
	KeyPlants          = "cached_plants"
	KeyUserLocation    = "cached_user_location"
	KeyFirstLaunch     = "app_first_launch"
	KeyUserPreferences = "user_preferences"
	KeyLastRefresh     = "last_refresh"
	KeyUserFavorites   = "user_favorites"
	KeySearchHistory   = "search_history"
	KeyWeather         = "weather_cache"
	KeyDiseases        = "disease_cache"
	KeyScanHistory     = "scan_history"
)

// Default expiry windows.
const (
	ExpiryPlants   = 24 * time.Hour
	ExpiryLocation = 72 * time.Hour
	ExpiryWeather  = time.Hour
	ExpiryDiseases = 168 * time.Hour
	ExpiryUserData = 24 * time.Hour
)

var storageKeys = []string{
	KeyUserLoggedIn,
	KeyPlants,
	KeyUserLocation,
	KeyFirstLaunch,
	KeyUserPreferences,
	KeyLastRefresh,
	KeyUserFavorites,
	KeySearchHistory,
	KeyWeather,
	KeyDiseases,
	KeyScanHistory,
}

// StorageKeys returns the closed set of keys cleared by a full cache reset.
func StorageKeys() []string {
	out := make([]string, len(storageKeys))
	copy(out, storageKeys)
	return out
}

// IsStorageKey reports whether key belongs to the recognised set.
func IsStorageKey(key string) bool {
	for _, k := range storageKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultExpiry returns the default window for a known key, or
// ExpiryUserData when the key has no dedicated window.
func DefaultExpiry(key string) time.Duration {
	switch key {
	case KeyPlants:
		return ExpiryPlants
	case KeyUserLocation:
		return ExpiryLocation
	case KeyWeather:
		return ExpiryWeather
	case KeyDiseases:
		return ExpiryDiseases
	default:
		return ExpiryUserData
	}
}
