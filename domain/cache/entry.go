// Package cache provides the domain model for timestamped cache entries.
package cache

import (
	"encoding/json"
	"time"
)

// EntryVersion is written into every entry envelope.
const EntryVersion = "1.0"

// Entry is the envelope persisted for every cached value.
// Timestamp is set once when the entry is created; a new save replaces
// the whole entry.
type Entry struct {
	// Data is the cached payload.
	Data json.RawMessage `json:"data"`

	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	// CustomExpiry overrides the reader's default window, in hours.
	CustomExpiry *float64 `json:"customExpiry"`

	// Version identifies the envelope format.
	Version string `json:"version"`

	// LastUpdated is set when the payload is rewritten in place.
	LastUpdated int64 `json:"lastUpdated,omitempty"`
}

// NewEntry creates an entry stamped at now. A positive customExpiry is
// stored as an override; zero or negative leaves the reader default in effect.
func NewEntry(data json.RawMessage, now time.Time, customExpiry time.Duration) Entry {
	e := Entry{
		Data:      data,
		Timestamp: now.UnixMilli(),
		Version:   EntryVersion,
	}
	if customExpiry > 0 {
		h := customExpiry.Hours()
		e.CustomExpiry = &h
	}
	return e
}

// Valid reports whether e looks like a written envelope. JSON values that
// are not envelopes decode with a zero timestamp.
func (e Entry) Valid() bool {
	return e.Timestamp > 0
}

// CreatedAt returns the write time.
func (e Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Age returns how long ago the entry was written.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt())
}

// Expiry returns the window that applies to this entry.
func (e Entry) Expiry(defaultExpiry time.Duration) time.Duration {
	if e.CustomExpiry != nil && *e.CustomExpiry > 0 {
		return HoursToDuration(*e.CustomExpiry)
	}
	return defaultExpiry
}

// IsFresh reports whether the entry is younger than its applicable window.
func (e Entry) IsFresh(now time.Time, defaultExpiry time.Duration) bool {
	return e.Age(now) < e.Expiry(defaultExpiry)
}

// HoursToDuration converts fractional hours to a duration.
func HoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
