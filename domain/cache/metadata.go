package cache

import (
	"math"
	"strconv"
	"time"
)

// Metadata describes a stored entry without its payload.
type Metadata struct {
	Key          string    `json:"key"`
	Timestamp    int64     `json:"timestamp"`
	AgeHours     float64   `json:"ageHours"`
	CustomExpiry *float64  `json:"customExpiry"`
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUpdated  int64     `json:"lastUpdated,omitempty"`
}

// MetadataOf builds metadata for an entry as seen at now.
func MetadataOf(key string, e Entry, now time.Time) Metadata {
	return Metadata{
		Key:          key,
		Timestamp:    e.Timestamp,
		AgeHours:     e.Age(now).Hours(),
		CustomExpiry: e.CustomExpiry,
		Version:      e.Version,
		CreatedAt:    e.CreatedAt().UTC(),
		LastUpdated:  e.LastUpdated,
	}
}

// SizeInfo summarises the bytes held by cache keys.
type SizeInfo struct {
	TotalBytes int64            `json:"totalSize"`
	Formatted  string           `json:"formattedSize"`
	KeyCount   int              `json:"keyCount"`
	PerKey     map[string]int64 `json:"keySizes"`
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n as a short human-readable size ("1.5 KB").
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + byteUnits[i]
}
