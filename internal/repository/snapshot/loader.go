package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dishdex/internal/domain"
	domcat "github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
)

// SpaceFile binds a configured space to its snapshot object name.
type SpaceFile struct {
	Config domain.SpaceConfig
	Name   string
}

// Loader reads every configured space from a Source. Spaces load concurrently;
// the result keeps configuration order so the first space stays primary.
type Loader struct {
	source Source
	spaces []SpaceFile
	logger *zap.Logger
}

// NewLoader creates a loader over source.
func NewLoader(source Source, spaces []SpaceFile, logger *zap.Logger) *Loader {
	return &Loader{source: source, spaces: spaces, logger: logger}
}

// Load returns one unnormalized space per configured file.
// Any failure is reported as a StoreLoadError naming the object.
func (l *Loader) Load(ctx context.Context) ([]domcat.Space, error) {
	out := make([]domcat.Space, len(l.spaces))
	g, ctx := errgroup.WithContext(ctx)
	for i, sf := range l.spaces {
		g.Go(func() error {
			store, err := l.loadOne(ctx, sf.Name)
			if err != nil {
				return domain.NewStoreLoadError(sf.Name, err)
			}
			out[i] = domcat.Space{Config: sf.Config, Store: store}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) loadOne(ctx context.Context, name string) (*embstore.Store, error) {
	start := time.Now()
	obj, err := l.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	rows, err := Decode(obj, obj.Size())
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		vectors[i] = r.Vector
		ids[i] = r.Path
	}
	store, err := embstore.Build(vectors, ids)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	l.logger.Debug("Snapshot read",
		zap.String("object", name),
		zap.Int("rows", store.Size()),
		zap.Int("dim", store.Dim()),
		zap.Duration("duration", time.Since(start)),
	)
	return store, nil
}
