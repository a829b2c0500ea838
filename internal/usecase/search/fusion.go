package search

import (
	"fmt"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
	"github.com/kailas-cloud/dishdex/internal/domain/search/result"
)

// SpaceResult is the outcome of ranking in one embedding space.
type SpaceResult struct {
	Space string
	Set   result.Set
	Err   error
}

// Fused holds per-space results in catalog order and the representative match,
// taken from the primary space only.
type Fused struct {
	Spaces         []SpaceResult
	Representative *result.Result
}

// Fuse runs Search independently in every space of the snapshot.
// A space without a query vector, or whose search fails, gets an error entry;
// the other spaces are unaffected.
func Fuse(queries map[string][]float32, snap *catalog.Snapshot, req request.Request) Fused {
	spaces := snap.Spaces()
	out := Fused{Spaces: make([]SpaceResult, 0, len(spaces))}

	for i, sp := range spaces {
		sr := SpaceResult{Space: sp.Name()}
		q, ok := queries[sp.Name()]
		switch {
		case !ok:
			sr.Err = fmt.Errorf("%w: no query vector for space %q", domain.ErrInvalidRequest, sp.Name())
		default:
			set, err := Search(q, sp.Store, req)
			if err != nil {
				sr.Err = fmt.Errorf("space %s: %w", sp.Name(), err)
			} else {
				sr.Set = set
			}
		}
		if i == 0 && sr.Err == nil && sr.Set.Matched() {
			out.Representative = sr.Set.Best()
		}
		out.Spaces = append(out.Spaces, sr)
	}
	return out
}

// Space returns the result for the named space.
func (f Fused) Space(name string) (SpaceResult, bool) {
	for _, sr := range f.Spaces {
		if sr.Space == name {
			return sr, true
		}
	}
	return SpaceResult{}, false
}
