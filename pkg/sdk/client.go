package dishdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/repository/metadata"
	"github.com/kailas-cloud/dishdex/internal/repository/snapshot"
	cataloguc "github.com/kailas-cloud/dishdex/internal/usecase/catalog"
	"github.com/kailas-cloud/dishdex/internal/usecase/evaluate"
	healthuc "github.com/kailas-cloud/dishdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/dishdex/internal/usecase/search"
)

// Client is the dishdex SDK entry point. It is safe for concurrent use;
// Reload swaps the catalog without blocking searches.
type Client struct {
	holder    *cataloguc.Holder
	searchSvc *searchuc.Service
	evaluator *evaluate.Evaluator
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and loads the catalog.
// The provided context bounds the initial load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.dir == "" && cfg.minio == nil {
		return nil, errors.New("dishdex: snapshot location required (use WithDir or WithMinio)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(cfg, obs)
	if err != nil {
		return nil, err
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func wireClient(cfg *clientConfig, obs *observer) (*Client, error) {
	source, err := createSource(cfg)
	if err != nil {
		return nil, err
	}

	// internals log through zap; SDK operations are reported by the observer
	nop := zap.NewNop()
	holder := cataloguc.NewHolder(snapshot.NewLoader(source, spaceFiles(cfg.spaces), nop), nop)

	var dishes searchuc.DishLookup
	switch {
	case cfg.dishes != nil:
		dishes = mapLookup(cfg.dishes)
	case cfg.metadataFile != "":
		l, err := metadata.NewFileLookup(cfg.metadataFile)
		if err != nil {
			return nil, fmt.Errorf("dishdex: %w", err)
		}
		dishes = l
	}

	var extractor domain.Extractor = noopExtractor{}
	// Pass nil interface (not typed nil pointer!) when the extractor has no health check.
	var extractorCheck healthuc.Checker
	if cfg.extractor != nil {
		extractor = cfg.extractor
		if hc, ok := cfg.extractor.(healthuc.Checker); ok {
			extractorCheck = hc
		}
	}

	return &Client{
		holder:    holder,
		searchSvc: searchuc.New(holder, extractor, dishes),
		evaluator: evaluate.New(evaluate.WithWorkers(cfg.workers)),
		healthSvc: healthuc.New(holder, extractorCheck, nil),
		obs:       obs,
	}, nil
}

func createSource(cfg *clientConfig) (snapshot.Source, error) {
	if cfg.minio == nil {
		return snapshot.NewFileSource(cfg.dir), nil
	}
	src, err := snapshot.NewMinioSource(snapshot.MinioConfig{
		Endpoint:  cfg.minio.Endpoint,
		AccessKey: cfg.minio.AccessKey,
		SecretKey: cfg.minio.SecretKey,
		Bucket:    cfg.minio.Bucket,
		Prefix:    cfg.minio.Prefix,
		UseSSL:    cfg.minio.UseSSL,
		Region:    cfg.minio.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("dishdex: create minio source: %w", err)
	}
	return src, nil
}

func spaceFiles(spaces []Space) []snapshot.SpaceFile {
	if len(spaces) == 0 {
		for _, sp := range domain.DefaultSpaces() {
			spaces = append(spaces, Space{Name: sp.Name, Model: sp.Model, Dimensions: sp.Dimensions})
		}
	}
	out := make([]snapshot.SpaceFile, len(spaces))
	for i, sp := range spaces {
		name := sp.Object
		if name == "" {
			name = sp.Name + ".parquet"
		}
		out[i] = snapshot.SpaceFile{
			Config: domain.SpaceConfig{Name: sp.Name, Model: sp.Model, Dimensions: sp.Dimensions},
			Name:   name,
		}
	}
	return out
}

// Reload reads the snapshots again and publishes them atomically.
// On failure the previous catalog stays active.
func (c *Client) Reload(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", start, err) }()

	if _, err = c.holder.Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Catalog describes the active snapshot.
func (c *Client) Catalog() (CatalogInfo, error) {
	snap := c.holder.Current()
	if snap == nil {
		return CatalogInfo{}, ErrEmptyStore
	}
	info := CatalogInfo{Rows: snap.Size(), LoadedAt: snap.LoadedAt()}
	for _, sp := range snap.Spaces() {
		info.Spaces = append(info.Spaces, SpaceInfo{
			Name:       sp.Name(),
			Model:      sp.Config.Model,
			Dimensions: sp.Store.Dim(),
			Degenerate: len(sp.Degenerate),
		})
	}
	return info, nil
}

// mapLookup serves metadata from an in-memory map.
type mapLookup map[string]Dish

func (m mapLookup) Lookup(_ context.Context, group string) (domain.Dish, error) {
	d, ok := m[group]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d.Normalized(group), nil
}

// noopExtractor returns an error on Extract call (used when no extractor configured).
type noopExtractor struct{}

func (noopExtractor) Extract(_ context.Context, _ string, _ []byte) ([]float32, error) {
	return nil, fmt.Errorf("%w: extractor not configured (use WithExtractor)", domain.ErrExtractorError)
}
