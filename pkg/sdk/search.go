package dishdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
	"github.com/kailas-cloud/dishdex/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/dishdex/internal/usecase/search"
)

// SearchImage extracts the query in the primary space and ranks it.
func (c *Client) SearchImage(ctx context.Context, image []byte, p Params) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_image", start, err) }()

	req, err := p.toRequest()
	if err != nil {
		return SearchResult{}, err
	}
	resp, err := c.searchSvc.Search(ctx, image, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search image: %w", err)
	}
	return responseFromDomain(resp), nil
}

// SearchVector ranks a precomputed embedding in the named space.
// An empty space means the primary one.
func (c *Client) SearchVector(
	ctx context.Context, space string, vec []float32, p Params,
) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_vector", start, err) }()

	req, err := p.toRequest()
	if err != nil {
		return SearchResult{}, err
	}
	resp, err := c.searchSvc.SearchVector(ctx, space, vec, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search vector: %w", err)
	}
	return responseFromDomain(resp), nil
}

// SearchFused ranks the image in every space. It fails only when every space failed;
// otherwise per-space errors are reported in SpaceResult.Err.
func (c *Client) SearchFused(ctx context.Context, image []byte, p Params) (res FusedResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_fused", start, err) }()

	req, err := p.toRequest()
	if err != nil {
		return FusedResult{}, err
	}
	resp, err := c.searchSvc.SearchFused(ctx, image, req)
	if err != nil {
		return FusedResult{}, fmt.Errorf("search fused: %w", err)
	}

	out := FusedResult{Dish: resp.Dish, Spaces: make([]SpaceResult, len(resp.Spaces))}
	for i, sr := range resp.Spaces {
		out.Spaces[i] = SpaceResult{Err: sr.Err}
		out.Spaces[i].Space = sr.Space
		if sr.Err == nil {
			out.Spaces[i].SearchResult = setFromDomain(sr.Space, &sr.Set)
		}
	}
	return out, nil
}

func (p Params) toRequest() (request.Request, error) {
	m, err := metric.Parse(string(p.Metric))
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	threshold := request.DefaultThreshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	return request.New(p.K, m, threshold)
}

func responseFromDomain(resp searchuc.Response) SearchResult {
	out := setFromDomain(resp.Space, &resp.Set)
	out.Dish = resp.Dish
	out.DegenerateQuery = resp.DegenerateQuery
	return out
}

func setFromDomain(space string, s *result.Set) SearchResult {
	out := SearchResult{
		Space:     space,
		Matched:   s.Matched(),
		Metric:    Metric(s.Metric()),
		Threshold: s.Threshold(),
		BestScore: s.BestScore(),
		Message:   s.Message(),
	}
	if b := s.Best(); b != nil {
		m := matchFromDomain(b)
		out.Best = &m
		out.SameGroup = matchesFromDomain(s.SameGroup())
		out.Related = matchesFromDomain(s.Related())
	}
	return out
}

func matchFromDomain(r *result.Result) Match {
	return Match{ID: r.ID(), Group: r.Group(), Score: r.Score()}
}

func matchesFromDomain(rs []result.Result) []Match {
	out := make([]Match, len(rs))
	for i := range rs {
		out[i] = matchFromDomain(&rs[i])
	}
	return out
}
