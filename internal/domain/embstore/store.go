// Package embstore holds the in-memory embedding matrix a catalog space is ranked against.
package embstore

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/vector"
)

// Store is an N×D row-major matrix of embeddings with index-aligned identifiers and groups.
// Read-only once published; only Normalize mutates it and must run before sharing.
type Store struct {
	dim        int
	data       []float32
	ids        []string
	groups     []string
	groupSizes map[string]int
}

// Build copies vectors and identifiers into a new store.
// Fails with ErrDimensionMismatch when counts differ or rows are not of uniform length.
func Build(vectors [][]float32, ids []string) (*Store, error) {
	if len(vectors) != len(ids) {
		return nil, fmt.Errorf("%w: %d vectors, %d identifiers",
			domain.ErrDimensionMismatch, len(vectors), len(ids))
	}

	s := &Store{
		ids:        make([]string, len(ids)),
		groups:     make([]string, len(ids)),
		groupSizes: make(map[string]int),
	}
	if len(vectors) == 0 {
		return s, nil
	}

	s.dim = len(vectors[0])
	if s.dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector at row 0", domain.ErrDimensionMismatch)
	}
	s.data = make([]float32, 0, len(vectors)*s.dim)
	for i, v := range vectors {
		if len(v) != s.dim {
			return nil, fmt.Errorf("row %d: %w", i, domain.NewDimensionMismatch(s.dim, len(v)))
		}
		s.data = append(s.data, v...)
	}

	copy(s.ids, ids)
	for i, id := range ids {
		g := GroupOf(id)
		s.groups[i] = g
		s.groupSizes[g]++
	}
	return s, nil
}

// GroupOf returns the first path segment of an identifier after mapping `\` to `/`.
// Identifiers without a separator are their own group.
func GroupOf(id string) string {
	id = strings.ReplaceAll(id, `\`, "/")
	if g, _, ok := strings.Cut(id, "/"); ok {
		return g
	}
	return id
}

// Normalize L2-normalizes every row in place and returns the indices of degenerate rows,
// which are left unchanged.
func (s *Store) Normalize() []int {
	var degenerate []int
	for i := range s.ids {
		if !vector.Normalize(s.row(i)) {
			degenerate = append(degenerate, i)
		}
	}
	return degenerate
}

// Size returns the number of rows.
func (s *Store) Size() int { return len(s.ids) }

// IsEmpty reports whether the store has no rows. Every query path checks it first.
func (s *Store) IsEmpty() bool { return s == nil || len(s.ids) == 0 }

// Dim returns the embedding dimensionality (0 for an empty store).
func (s *Store) Dim() int { return s.dim }

// Vector returns row i. The slice aliases store memory and must not be modified.
func (s *Store) Vector(i int) []float32 { return s.row(i) }

// ID returns the identifier of row i.
func (s *Store) ID(i int) string { return s.ids[i] }

// Group returns the group key of row i.
func (s *Store) Group(i int) string { return s.groups[i] }

// Labels returns a copy of the per-row group keys.
func (s *Store) Labels() []string { return slices.Clone(s.groups) }

// GroupSize returns the number of rows in group g.
func (s *Store) GroupSize(g string) int { return s.groupSizes[g] }

// Groups returns the distinct group keys in sorted order.
func (s *Store) Groups() []string {
	out := make([]string, 0, len(s.groupSizes))
	for g := range s.groupSizes {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// CheckQuery validates a query vector against the store: empty store first, then dimensionality.
func (s *Store) CheckQuery(query []float32) error {
	if s.IsEmpty() {
		return domain.ErrEmptyStore
	}
	if len(query) != s.dim {
		return domain.NewDimensionMismatch(s.dim, len(query))
	}
	return nil
}

func (s *Store) row(i int) []float32 {
	lo := i * s.dim
	hi := lo + s.dim
	return s.data[lo:hi:hi]
}
