// Package ratelimit provides the domain model for the daily scan budget.
package ratelimit

import (
	"fmt"
	"time"
)

// StorageKey is where the single global window is persisted.
const StorageKey = "scan_rate_limit"

// MaxPerDay is the number of scans allowed per local calendar day.
const MaxPerDay = 10

// DateLayout formats the window's calendar day.
const DateLayout = "2006-01-02"

// Window is the persisted counter for one calendar day.
type Window struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Today returns the date key for now in the given location.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// Current returns the window as it applies on today. A window from any
// other day reads as an empty window for today.
func (w Window) Current(today string) Window {
	if w.Date != today {
		return Window{Date: today}
	}
	return w
}

// Remaining returns how many operations are left under limit.
func (w Window) Remaining(limit int) int {
	if r := limit - w.Count; r > 0 {
		return r
	}
	return 0
}

// Usage is the read-only view of the budget.
type Usage struct {
	Allowed    bool          `json:"canScan"`
	Remaining  int           `json:"remaining"`
	Used       int           `json:"used"`
	Limit      int           `json:"limit"`
	ResetIn    time.Duration `json:"-"`
	ResetTime  string        `json:"resetTime"`
	Percentage int           `json:"percentage,omitempty"`
}

// Result reports the outcome of consuming one operation.
type Result struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
}

// UntilMidnight returns the time from now to the next local midnight.
func UntilMidnight(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return next.Sub(local)
}

// FormatReset renders a countdown as "<h>h <m>m".
func FormatReset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
