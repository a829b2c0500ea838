// Package catalog describes one loaded generation of the embedding database.
package catalog

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
)

// Space is one embedding space of a snapshot.
type Space struct {
	Config     domain.SpaceConfig
	Store      *embstore.Store
	Degenerate []int
}

// Name returns the space name.
func (s Space) Name() string { return s.Config.Name }

// Snapshot is an immutable set of index-aligned spaces. The first space is the primary one.
type Snapshot struct {
	spaces   []Space
	index    map[string]int
	loadedAt time.Time
}

// NewSnapshot validates that every space shares the same identifiers in the same order
// and that each store's dimensionality matches its configuration.
func NewSnapshot(spaces []Space, loadedAt time.Time) (*Snapshot, error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("%w: no embedding spaces", domain.ErrStoreLoad)
	}

	snap := &Snapshot{
		spaces:   spaces,
		index:    make(map[string]int, len(spaces)),
		loadedAt: loadedAt,
	}
	ref := spaces[0].Store
	for i, sp := range spaces {
		if sp.Store == nil {
			return nil, domain.NewStoreLoadError(sp.Name(), fmt.Errorf("nil store"))
		}
		if _, dup := snap.index[sp.Name()]; dup {
			return nil, domain.NewStoreLoadError(sp.Name(), fmt.Errorf("duplicate space"))
		}
		snap.index[sp.Name()] = i

		if !sp.Store.IsEmpty() && sp.Config.Dimensions > 0 && sp.Store.Dim() != sp.Config.Dimensions {
			return nil, domain.NewStoreLoadError(sp.Name(),
				domain.NewDimensionMismatch(sp.Config.Dimensions, sp.Store.Dim()))
		}
		if err := aligned(ref, sp.Store); err != nil {
			return nil, domain.NewStoreLoadError(sp.Name(), err)
		}
	}
	return snap, nil
}

func aligned(ref, other *embstore.Store) error {
	if ref.Size() != other.Size() {
		return fmt.Errorf("row count %d differs from primary space (%d)", other.Size(), ref.Size())
	}
	for i := range ref.Size() {
		if ref.ID(i) != other.ID(i) {
			return fmt.Errorf("row %d: identifier %q differs from primary space (%q)", i, other.ID(i), ref.ID(i))
		}
	}
	return nil
}

// Primary returns the first space.
func (s *Snapshot) Primary() Space { return s.spaces[0] }

// Space returns the named space.
func (s *Snapshot) Space(name string) (Space, bool) {
	i, ok := s.index[name]
	if !ok {
		return Space{}, false
	}
	return s.spaces[i], true
}

// Spaces returns all spaces in configured order.
func (s *Snapshot) Spaces() []Space { return s.spaces }

// Size returns the number of rows (identical across spaces).
func (s *Snapshot) Size() int { return s.spaces[0].Store.Size() }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
