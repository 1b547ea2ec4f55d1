// Package source provides plant.Source implementations backed by a JSON
// file or an HTTP JSON endpoint.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

// ErrMalformed is returned when a payload is not a plant list.
var ErrMalformed = errors.New("malformed plant payload")

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexStrings accepts a string or a list of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var ss []string
		if err := json.Unmarshal(b, &ss); err != nil {
			return err
		}
		*f = ss
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "" {
		*f = []string{s}
	}
	return nil
}

type wireImage struct {
	RegularURL string `json:"regular_url"`
	Thumbnail  string `json:"thumbnail"`
}

// wirePlant is the catalogue record; it also accepts the API's
// numeric ids and list-valued scientific names.
type wirePlant struct {
	ID             flexString  `json:"id"`
	CommonName     string      `json:"common_name"`
	ScientificName flexStrings `json:"scientific_name"`
	OtherNames     []string    `json:"other_names"`
	Family         string      `json:"family"`
	Genus          string      `json:"genus"`
	Cycle          string      `json:"cycle"`
	Watering       string      `json:"watering"`
	Sunlight       flexStrings `json:"sunlight"`
	ImageURL       string      `json:"image_url"`
	Thumbnail      string      `json:"thumbnail"`
	DefaultImage   *wireImage  `json:"default_image"`
}

func (w wirePlant) toPlant() plant.Plant {
	p := plant.Plant{
		ID:             string(w.ID),
		CommonName:     w.CommonName,
		ScientificName: strings.Join(w.ScientificName, ", "),
		OtherNames:     w.OtherNames,
		Family:         w.Family,
		Genus:          w.Genus,
		Cycle:          w.Cycle,
		Watering:       w.Watering,
		Sunlight:       w.Sunlight,
		ImageURL:       w.ImageURL,
		Thumbnail:      w.Thumbnail,
	}
	if w.DefaultImage != nil {
		if p.ImageURL == "" {
			p.ImageURL = w.DefaultImage.RegularURL
		}
		if p.Thumbnail == "" {
			p.Thumbnail = w.DefaultImage.Thumbnail
		}
	}
	return p
}

// decodePlants reads a bare list or a {"data": [...]} envelope.
func decodePlants(data []byte) ([]plant.Plant, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	var wire []wirePlant
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, errors.Join(ErrMalformed, err)
		}
	case '{':
		var env struct {
			Data []wirePlant `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, errors.Join(ErrMalformed, err)
		}
		wire = env.Data
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrMalformed, data[0])
	}

	plants := make([]plant.Plant, 0, len(wire))
	for _, w := range wire {
		plants = append(plants, w.toPlant())
	}
	return plants, nil
}
