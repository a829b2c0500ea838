package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
	"github.com/kailas-cloud/dishdex/internal/domain/search/result"
	"github.com/kailas-cloud/dishdex/internal/domain/vector"
	"github.com/kailas-cloud/dishdex/internal/logger"
)

// Response is the outcome of a single-space search.
type Response struct {
	Space string
	Set   result.Set
	// Dish is set only for matched searches.
	Dish *domain.Dish
	// DegenerateQuery marks a near-zero query vector that was ranked unnormalized.
	DegenerateQuery bool
}

// FusedResponse is the outcome of a search across every catalog space.
type FusedResponse struct {
	Spaces []SpaceResult
	Dish   *domain.Dish
}

// Service turns query images into ranked, thresholded and grouped catalog matches.
type Service struct {
	catalog CatalogReader
	extract domain.Extractor
	dishes  DishLookup
}

// New creates a search service. dishes may be nil, in which case every match gets the default record.
func New(catalog CatalogReader, extract domain.Extractor, dishes DishLookup) *Service {
	return &Service{catalog: catalog, extract: extract, dishes: dishes}
}

// Search extracts the query embedding in the primary space and ranks it.
func (s *Service) Search(ctx context.Context, image []byte, req request.Request) (Response, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Response{}, err
	}
	primary := snap.Primary().Name()

	vec, err := s.extract.Extract(ctx, primary, image)
	if err != nil {
		return Response{}, fmt.Errorf("extract %s: %w", primary, err)
	}
	return s.searchIn(ctx, snap, primary, vec, req)
}

// SearchVector ranks a caller-supplied embedding in the named space, bypassing extraction.
func (s *Service) SearchVector(
	ctx context.Context, space string, vec []float32, req request.Request,
) (Response, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Response{}, err
	}
	if space == "" {
		space = snap.Primary().Name()
	}
	return s.searchIn(ctx, snap, space, vec, req)
}

// SearchFused extracts the query in every space concurrently and ranks each independently.
// Extraction or ranking failures are reported per space and never abort the other spaces.
// Metadata is looked up from the primary space's best match.
func (s *Service) SearchFused(ctx context.Context, image []byte, req request.Request) (FusedResponse, error) {
	snap, err := s.snapshot()
	if err != nil {
		return FusedResponse{}, err
	}

	spaces := snap.Spaces()
	vecs := make([][]float32, len(spaces))
	errs := make([]error, len(spaces))

	var g errgroup.Group
	for i, sp := range spaces {
		g.Go(func() error {
			v, err := s.extract.Extract(ctx, sp.Name(), image)
			if err != nil {
				errs[i] = fmt.Errorf("extract %s: %w", sp.Name(), err)
				return nil
			}
			vecs[i] = s.prepareQuery(ctx, sp.Name(), v)
			return nil
		})
	}
	_ = g.Wait()

	queries := make(map[string][]float32, len(spaces))
	for i, sp := range spaces {
		if errs[i] == nil {
			queries[sp.Name()] = vecs[i]
		}
	}

	fused := Fuse(queries, snap, req)
	for i := range fused.Spaces {
		// extraction errors are more useful than "no query vector"
		if errs[i] != nil {
			fused.Spaces[i].Err = errs[i]
		}
	}
	if allFailed(fused.Spaces) {
		return FusedResponse{}, errors.Join(collectErrs(fused.Spaces)...)
	}

	resp := FusedResponse{Spaces: fused.Spaces}
	if fused.Representative != nil {
		dish := s.lookup(ctx, fused.Representative.Group())
		resp.Dish = &dish
	}
	return resp, nil
}

func (s *Service) searchIn(
	ctx context.Context, snap *catalog.Snapshot, space string, vec []float32, req request.Request,
) (Response, error) {
	sp, ok := snap.Space(space)
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", domain.ErrUnknownSpace, space)
	}

	q := s.prepareQuery(ctx, space, vec)
	set, err := Search(q, sp.Store, req)
	if err != nil {
		return Response{}, fmt.Errorf("search %s: %w", space, err)
	}

	resp := Response{Space: space, Set: set, DegenerateQuery: vector.IsDegenerate(vec)}
	if set.Matched() {
		dish := s.lookup(ctx, set.Best().Group())
		resp.Dish = &dish
	}
	return resp, nil
}

// prepareQuery returns a unit-norm copy of vec. Degenerate vectors pass through unnormalized.
func (s *Service) prepareQuery(ctx context.Context, space string, vec []float32) []float32 {
	q, ok := vector.Normalized(vec)
	if !ok {
		logger.FromContext(ctx).Warn("Degenerate query vector, ranking unnormalized",
			zap.String("space", space),
			zap.Int("dimensions", len(vec)),
		)
	}
	return q
}

// lookup never fails: misses and backend errors fall back to the default record.
func (s *Service) lookup(ctx context.Context, group string) domain.Dish {
	if s.dishes == nil {
		return domain.UnknownDish(group)
	}
	d, err := s.dishes.Lookup(ctx, group)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx).Warn("Dish metadata lookup failed",
				zap.String("group", group),
				zap.Error(err),
			)
		}
		return domain.UnknownDish(group)
	}
	return d.Normalized(group)
}

func (s *Service) snapshot() (*catalog.Snapshot, error) {
	snap := s.catalog.Current()
	if snap == nil {
		return nil, domain.ErrEmptyStore
	}
	return snap, nil
}

func allFailed(srs []SpaceResult) bool {
	for _, sr := range srs {
		if sr.Err == nil {
			return false
		}
	}
	return true
}

func collectErrs(srs []SpaceResult) []error {
	out := make([]error, 0, len(srs))
	for _, sr := range srs {
		out = append(out, sr.Err)
	}
	return out
}
