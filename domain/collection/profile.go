package collection

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

// HighConfidence is the threshold for a confident detection.
const HighConfidence = 0.8

// DetectedDisease is a disease found by a scan.
type DetectedDisease struct {
	DiseaseName string    `json:"disease_name"`
	Confidence  float64   `json:"confidence"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Profile is the per-user document stored under user_data_<uid>.
type Profile struct {
	Email            string            `json:"email,omitempty"`
	Name             string            `json:"name,omitempty"`
	DisplayName      string            `json:"displayName,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Location         *plant.Location   `json:"location,omitempty"`
	LocationAddress  string            `json:"locationAddress,omitempty"`
	Setup            bool              `json:"setup"`
	Role             string            `json:"role"`
	FavoritePlants   Favorites         `json:"favorite_plants"`
	DetectedDiseases []DetectedDisease `json:"detected_diseases"`
	TotalScans       int               `json:"total_scans"`
	LastScanAt       *time.Time        `json:"last_scan_at,omitempty"`
	SetupCompletedAt *time.Time        `json:"setupCompletedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
}

// NewProfile returns the document used for a user with no stored profile.
func NewProfile(email string, now time.Time) Profile {
	return Profile{
		Email:            email,
		Role:             "user",
		FavoritePlants:   Favorites{},
		DetectedDiseases: []DetectedDisease{},
		CreatedAt:        now,
	}
}

// AddDetections appends detections whose disease name is not yet recorded
// and returns how many were added.
func (p *Profile) AddDetections(preds []Prediction, at time.Time) int {
	seen := make(map[string]struct{}, len(p.DetectedDiseases))
	for _, d := range p.DetectedDiseases {
		seen[d.DiseaseName] = struct{}{}
	}
	added := 0
	for _, pr := range preds {
		if pr.ClassName == "" {
			continue
		}
		if _, ok := seen[pr.ClassName]; ok {
			continue
		}
		seen[pr.ClassName] = struct{}{}
		p.DetectedDiseases = append(p.DetectedDiseases, DetectedDisease{
			DiseaseName: pr.ClassName,
			Confidence:  pr.Confidence,
			DetectedAt:  at,
		})
		added++
	}
	return added
}

// DiseasesNewestFirst returns a copy of the detected diseases, newest first.
func (p Profile) DiseasesNewestFirst() []DetectedDisease {
	out := make([]DetectedDisease, len(p.DetectedDiseases))
	copy(out, p.DetectedDiseases)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out
}

// DiseaseStats summarises detected diseases.
type DiseaseStats struct {
	Total          int `json:"total"`
	LastThirtyDays int `json:"recent"`
	HighConfidence int `json:"highConfidence"`
}

// Stats computes disease statistics relative to now.
func (p Profile) Stats(now time.Time) DiseaseStats {
	cutoff := now.AddDate(0, 0, -30)
	s := DiseaseStats{Total: len(p.DetectedDiseases)}
	for _, d := range p.DetectedDiseases {
		if d.DetectedAt.After(cutoff) {
			s.LastThirtyDays++
		}
		if d.Confidence >= HighConfidence {
			s.HighConfidence++
		}
	}
	return s
}
