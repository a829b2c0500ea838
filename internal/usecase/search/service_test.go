package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
)

// --- Mocks ---

type mockCatalog struct {
	snap *catalog.Snapshot
}

func (m *mockCatalog) Current() *catalog.Snapshot { return m.snap }

type mockExtractor struct {
	mu      sync.Mutex
	vecs    map[string][]float32
	errs    map[string]error
	calls   []string
	lastImg []byte
}

func (m *mockExtractor) Extract(_ context.Context, space string, image []byte) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, space)
	m.lastImg = image
	if err := m.errs[space]; err != nil {
		return nil, err
	}
	return m.vecs[space], nil
}

type mockDishes struct {
	dishes map[string]domain.Dish
	err    error
	groups []string
}

func (m *mockDishes) Lookup(_ context.Context, group string) (domain.Dish, error) {
	m.groups = append(m.groups, group)
	if m.err != nil {
		return domain.Dish{}, m.err
	}
	d, ok := m.dishes[group]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

// twoSpaceSnapshot: cnn is 2-d, vit is 3-d, both over the same four rows.
func twoSpaceSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	ids := []string{"pho/1.jpg", "pho/2.jpg", "banh_mi/1.jpg", "banh_mi/2.jpg"}
	cnn, err := embstore.Build([][]float32{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}}, ids)
	if err != nil {
		t.Fatalf("build cnn: %v", err)
	}
	cnn.Normalize()
	vit, err := embstore.Build([][]float32{{0, 0, 1}, {0, 0.1, 0.9}, {1, 0, 0}, {0.9, 0.1, 0}}, ids)
	if err != nil {
		t.Fatalf("build vit: %v", err)
	}
	vit.Normalize()
	snap, err := catalog.NewSnapshot([]catalog.Space{
		{Config: domain.SpaceConfig{Name: "cnn", Dimensions: 2}, Store: cnn},
		{Config: domain.SpaceConfig{Name: "vit", Dimensions: 3}, Store: vit},
	}, time.Now())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func euclideanReq(t *testing.T) request.Request {
	t.Helper()
	r, err := request.New(4, metric.Euclidean, 0.9)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return r
}

// --- Tests ---

func TestService_Search_Matched(t *testing.T) {
	ext := &mockExtractor{vecs: map[string][]float32{"cnn": {5, 0}}}
	dishes := &mockDishes{dishes: map[string]domain.Dish{
		"pho": {Name: "Phở", Intro: "noodle soup", Ingredients: []string{"beef"}},
	}}
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, dishes)

	resp, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Space != "cnn" {
		t.Errorf("Space = %q, want primary space", resp.Space)
	}
	if len(ext.calls) != 1 || ext.calls[0] != "cnn" {
		t.Errorf("extractor calls = %v", ext.calls)
	}
	if !resp.Set.Matched() || resp.Set.Best().ID() != "pho/1.jpg" {
		t.Fatalf("unexpected set: matched=%v", resp.Set.Matched())
	}
	if resp.Set.Best().Score() > 1e-6 {
		t.Errorf("normalized query should hit distance 0, got %f", resp.Set.Best().Score())
	}
	if len(resp.Set.SameGroup()) != 2 || len(resp.Set.Related()) != 2 {
		t.Errorf("same=%d related=%d", len(resp.Set.SameGroup()), len(resp.Set.Related()))
	}
	if resp.Dish == nil || resp.Dish.Name != "Phở" || resp.Dish.ID != "pho" {
		t.Errorf("Dish = %+v", resp.Dish)
	}
	if resp.Dish.Steps == nil {
		t.Error("Steps must be normalized to an empty list")
	}
}

func TestService_Search_Unmatched(t *testing.T) {
	// {-1, -1} normalized sits at distance >= 1.7 from every cnn row
	ext := &mockExtractor{vecs: map[string][]float32{"cnn": {-1, -1}}}
	dishes := &mockDishes{}
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, dishes)

	resp, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Set.Matched() {
		t.Fatal("expected no match")
	}
	if resp.Dish != nil {
		t.Error("unmatched search must not carry a dish")
	}
	if len(dishes.groups) != 0 {
		t.Error("metadata must not be looked up for a non-match")
	}
	if resp.Set.Message() == "" {
		t.Error("expected a message")
	}
}

func TestService_Search_MetadataFallback(t *testing.T) {
	ext := &mockExtractor{vecs: map[string][]float32{"cnn": {0, 1}}}
	for name, dishes := range map[string]DishLookup{
		"missing": &mockDishes{},
		"failing": &mockDishes{err: errors.New("connection refused")},
		"nil":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, dishes)
			resp, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
			if err != nil {
				t.Fatalf("lookup failure must not abort search: %v", err)
			}
			if resp.Dish == nil || resp.Dish.Name != domain.UnknownDishName || resp.Dish.ID != "banh_mi" {
				t.Errorf("Dish = %+v", resp.Dish)
			}
		})
	}
}

func TestService_Search_Errors(t *testing.T) {
	t.Run("no catalog", func(t *testing.T) {
		svc := New(&mockCatalog{}, &mockExtractor{}, nil)
		_, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
		if !errors.Is(err, domain.ErrEmptyStore) {
			t.Fatalf("expected ErrEmptyStore, got %v", err)
		}
	})
	t.Run("extractor", func(t *testing.T) {
		ext := &mockExtractor{errs: map[string]error{"cnn": domain.ErrExtractorError}}
		svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, nil)
		_, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
		if !errors.Is(err, domain.ErrExtractorError) {
			t.Fatalf("expected ErrExtractorError, got %v", err)
		}
	})
	t.Run("dimension", func(t *testing.T) {
		ext := &mockExtractor{vecs: map[string][]float32{"cnn": {1, 0, 0}}}
		svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, nil)
		_, err := svc.Search(context.Background(), []byte("img"), euclideanReq(t))
		if !errors.Is(err, domain.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
	})
}

func TestService_SearchVector(t *testing.T) {
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, &mockExtractor{}, nil)

	resp, err := svc.SearchVector(context.Background(), "vit", []float32{1, 0, 0}, euclideanReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Space != "vit" || resp.Set.Best().ID() != "banh_mi/1.jpg" {
		t.Errorf("space=%q best=%+v", resp.Space, resp.Set.Best())
	}

	if _, err := svc.SearchVector(context.Background(), "clip", []float32{1}, euclideanReq(t)); !errors.Is(err, domain.ErrUnknownSpace) {
		t.Errorf("expected ErrUnknownSpace, got %v", err)
	}

	resp, err = svc.SearchVector(context.Background(), "", []float32{0, 0}, euclideanReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.DegenerateQuery || resp.Space != "cnn" {
		t.Errorf("expected degenerate query on primary space, got %+v", resp)
	}
}

func TestService_SearchFused(t *testing.T) {
	ext := &mockExtractor{vecs: map[string][]float32{
		"cnn": {1, 0},
		"vit": {1, 0, 0},
	}}
	dishes := &mockDishes{dishes: map[string]domain.Dish{"pho": {Name: "Phở"}}}
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, dishes)

	resp, err := svc.SearchFused(context.Background(), []byte("img"), euclideanReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Spaces) != 2 || resp.Spaces[0].Space != "cnn" || resp.Spaces[1].Space != "vit" {
		t.Fatalf("unexpected spaces: %+v", resp.Spaces)
	}
	if best := resp.Spaces[0].Set.Best(); best == nil || best.Group() != "pho" {
		t.Errorf("cnn best = %+v", best)
	}
	if best := resp.Spaces[1].Set.Best(); best == nil || best.Group() != "banh_mi" {
		t.Errorf("vit best = %+v", best)
	}
	if resp.Dish == nil || resp.Dish.Name != "Phở" {
		t.Errorf("dish must come from the primary space, got %+v", resp.Dish)
	}
	if len(ext.calls) != 2 {
		t.Errorf("expected one extraction per space, got %v", ext.calls)
	}
}

func TestService_SearchFused_PartialFailure(t *testing.T) {
	ext := &mockExtractor{
		vecs: map[string][]float32{"vit": {1, 0, 0}},
		errs: map[string]error{"cnn": domain.ErrExtractorError},
	}
	dishes := &mockDishes{}
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, dishes)

	resp, err := svc.SearchFused(context.Background(), []byte("img"), euclideanReq(t))
	if err != nil {
		t.Fatalf("one failing space must not abort the other: %v", err)
	}
	if !errors.Is(resp.Spaces[0].Err, domain.ErrExtractorError) {
		t.Errorf("cnn err = %v", resp.Spaces[0].Err)
	}
	if resp.Spaces[1].Err != nil || !resp.Spaces[1].Set.Matched() {
		t.Errorf("vit must be untouched: err=%v", resp.Spaces[1].Err)
	}
	if resp.Dish != nil {
		t.Error("representative comes from the primary space only")
	}
}

func TestService_SearchFused_AllFail(t *testing.T) {
	ext := &mockExtractor{errs: map[string]error{
		"cnn": domain.ErrExtractorError,
		"vit": domain.ErrExtractorError,
	}}
	svc := New(&mockCatalog{snap: twoSpaceSnapshot(t)}, ext, nil)
	_, err := svc.SearchFused(context.Background(), []byte("img"), euclideanReq(t))
	if !errors.Is(err, domain.ErrExtractorError) {
		t.Fatalf("expected ErrExtractorError, got %v", err)
	}
}

func TestFuse_MissingQuery(t *testing.T) {
	snap := twoSpaceSnapshot(t)
	f := Fuse(map[string][]float32{"vit": {1, 0, 0}}, snap, euclideanReq(t))
	cnn, ok := f.Space("cnn")
	if !ok || !errors.Is(cnn.Err, domain.ErrInvalidRequest) {
		t.Errorf("cnn = %+v", cnn)
	}
	vit, ok := f.Space("vit")
	if !ok || vit.Err != nil || !vit.Set.Matched() {
		t.Errorf("vit = %+v", vit)
	}
	if f.Representative != nil {
		t.Error("no representative without a primary match")
	}
	if _, ok := f.Space("clip"); ok {
		t.Error("unexpected space")
	}
}
