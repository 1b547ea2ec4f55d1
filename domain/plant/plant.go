// Package plant provides plant records and the remote sources that supply them.
package plant

import (
	"context"
	"time"
)

// Plant is a plant record as received from the plant catalogue.
type Plant struct {
	ID             string   `json:"id"`
	CommonName     string   `json:"common_name"`
	ScientificName string   `json:"scientific_name,omitempty"`
	OtherNames     []string `json:"other_names,omitempty"`
	Family         string   `json:"family,omitempty"`
	Genus          string   `json:"genus,omitempty"`
	Cycle          string   `json:"cycle,omitempty"`
	Watering       string   `json:"watering,omitempty"`
	Sunlight       []string `json:"sunlight,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
}

// Location is the device position used for local recommendations.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Source fetches the plant catalogue from a remote service.
type Source interface {
	Plants(ctx context.Context) ([]Plant, error)
}

// LocationSource provides the current device location.
type LocationSource interface {
	Location(ctx context.Context) (Location, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Plant, error)

// Plants calls f.
func (f SourceFunc) Plants(ctx context.Context) ([]Plant, error) {
	return f(ctx)
}
