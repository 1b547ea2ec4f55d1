package source

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

// File reads the plant catalogue from a JSON file.
type File struct {
	path string
}

// NewFile creates a source reading path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Plants reads and decodes the file.
func (f *File) Plants(ctx context.Context) ([]plant.Plant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read plants: %w", err)
	}
	return decodePlants(data)
}

var _ plant.Source = (*File)(nil)
