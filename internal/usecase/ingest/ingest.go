// Package ingest embeds a dataset directory into index-aligned rows for every space.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dishdex/internal/domain"
)

// ImageExtensions are the file suffixes treated as dataset images (lowercase).
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp"}

// Walk lists dataset images under root as slash-separated relative paths, sorted.
// The first path segment is the dish group.
func Walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(p))) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("rel %s: %w", p, err)
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	slices.Sort(out)
	return out, nil
}

// Progress receives one call per finished image. err is nil on success.
type Progress func(file string, err error)

// Result holds the rows that succeeded in every space, in input order.
// Vectors[space][i] belongs to Paths[i].
type Result struct {
	Paths    []string
	Vectors  map[string][][]float32
	Failed   int
	Duration time.Duration
}

// Ingester extracts every configured space for each image with a bounded worker pool.
type Ingester struct {
	extract  domain.Extractor
	spaces   []domain.SpaceConfig
	workers  int
	logger   *zap.Logger
	progress Progress
}

// New creates an ingester. workers below 1 means one worker.
func New(extract domain.Extractor, spaces []domain.SpaceConfig, workers int, logger *zap.Logger) *Ingester {
	return &Ingester{extract: extract, spaces: spaces, workers: max(workers, 1), logger: logger}
}

// WithProgress sets a per-image callback. It may be called concurrently.
func (in *Ingester) WithProgress(p Progress) *Ingester {
	in.progress = p
	return in
}

type embedded struct {
	vectors [][]float32 // per space, in in.spaces order
	ok      bool
}

// Run embeds files (relative to root). An image is kept only when every space succeeded,
// so all spaces stay index-aligned. Per-image failures are logged and counted; only
// context cancellation aborts the run.
func (in *Ingester) Run(ctx context.Context, root string, files []string) (Result, error) {
	start := time.Now()
	out := make([]embedded, len(files))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			vecs, err := in.embedOne(gctx, root, f)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failed.Add(1)
				in.logger.Warn("Image skipped", zap.String("file", f), zap.Error(err))
			} else {
				out[i] = embedded{vectors: vecs, ok: true}
			}
			if in.progress != nil {
				in.progress(f, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("ingest: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("ingest: %w", err)
	}

	res := Result{
		Vectors:  make(map[string][][]float32, len(in.spaces)),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	for i, e := range out {
		if !e.ok {
			continue
		}
		res.Paths = append(res.Paths, files[i])
		for s, sp := range in.spaces {
			res.Vectors[sp.Name] = append(res.Vectors[sp.Name], e.vectors[s])
		}
	}
	return res, nil
}

func (in *Ingester) embedOne(ctx context.Context, root, file string) ([][]float32, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path.Clean(file))))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	vecs := make([][]float32, len(in.spaces))
	for i, sp := range in.spaces {
		v, err := in.extract.Extract(ctx, sp.Name, data)
		if err != nil {
			return nil, fmt.Errorf("space %s: %w", sp.Name, err)
		}
		vecs[i] = v
	}
	return vecs, nil
}
