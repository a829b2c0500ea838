// Package metadata resolves dish display records by group key.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kailas-cloud/dishdex/internal/domain"
)

// FileLookup serves dish records from an in-memory map loaded from a metadata.json file.
type FileLookup struct {
	dishes map[string]domain.Dish
}

// NewFileLookup reads path. A missing file yields an empty lookup, every group falls back
// to the default record.
func NewFileLookup(path string) (*FileLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileLookup{dishes: map[string]domain.Dish{}}, nil
		}
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer func() { _ = f.Close() }()

	dishes, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return &FileLookup{dishes: dishes}, nil
}

// Parse decodes a JSON object mapping group key to dish record.
func Parse(r io.Reader) (map[string]domain.Dish, error) {
	var raw map[string]dishRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out := make(map[string]domain.Dish, len(raw))
	for group, rec := range raw {
		out[group] = toDomain(group, rec)
	}
	return out, nil
}

// Lookup returns the dish for group or domain.ErrNotFound.
func (l *FileLookup) Lookup(_ context.Context, group string) (domain.Dish, error) {
	d, ok := l.dishes[group]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

// Dishes returns every loaded record.
func (l *FileLookup) Dishes() map[string]domain.Dish { return l.dishes }
