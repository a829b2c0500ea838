// Package catalog publishes the active embedding database and swaps it atomically on reload.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
	domcat "github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/metrics"
)

// Holder owns the active snapshot. Readers take Current() once per request and keep using
// that snapshot; a reload never mutates a published snapshot.
type Holder struct {
	loader  Loader
	logger  *zap.Logger
	current atomic.Pointer[domcat.Snapshot]
	// reloads are serialized; reads never block
	mu  sync.Mutex
	now func() time.Time
}

// NewHolder creates an empty holder. Call Reload to publish the first snapshot.
func NewHolder(loader Loader, logger *zap.Logger) *Holder {
	return &Holder{loader: loader, logger: logger, now: time.Now}
}

// Current returns the active snapshot, nil before the first successful reload.
func (h *Holder) Current() *domcat.Snapshot {
	return h.current.Load()
}

// Reload loads, normalizes and validates a fresh snapshot and publishes it.
// On failure the previous snapshot stays active.
func (h *Holder) Reload(ctx context.Context) (*domcat.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := h.now()
	snap, err := h.build(ctx)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		h.logger.Error("Catalog reload failed",
			zap.Bool("serving_previous", h.current.Load() != nil),
			zap.Error(err),
		)
		return nil, err
	}

	h.current.Store(snap)
	metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()
	for _, sp := range snap.Spaces() {
		metrics.CatalogRows.WithLabelValues(sp.Name()).Set(float64(sp.Store.Size()))
		metrics.CatalogDegenerateVectors.WithLabelValues(sp.Name()).Set(float64(len(sp.Degenerate)))
	}
	h.logger.Info("Catalog loaded",
		zap.Int("rows", snap.Size()),
		zap.Int("spaces", len(snap.Spaces())),
		zap.Duration("duration", h.now().Sub(start)),
	)
	return snap, nil
}

func (h *Holder) build(ctx context.Context) (*domcat.Snapshot, error) {
	spaces, err := h.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	for i := range spaces {
		sp := &spaces[i]
		sp.Degenerate = sp.Store.Normalize()
		if len(sp.Degenerate) > 0 {
			sample := make([]string, 0, min(len(sp.Degenerate), 5))
			for _, row := range sp.Degenerate[:cap(sample)] {
				sample = append(sample, sp.Store.ID(row))
			}
			h.logger.Warn("Degenerate vectors left unnormalized",
				zap.String("space", sp.Name()),
				zap.Int("count", len(sp.Degenerate)),
				zap.Strings("sample", sample),
			)
		}
	}

	snap, err := domcat.NewSnapshot(spaces, h.now())
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	if snap.Size() == 0 {
		h.logger.Warn("Catalog is empty, searches will fail until the next reload")
	}
	return snap, nil
}

// HealthCheck fails when no snapshot is published or the published one has no rows.
func (h *Holder) HealthCheck(_ context.Context) error {
	snap := h.current.Load()
	if snap == nil || snap.Size() == 0 {
		return domain.ErrEmptyStore
	}
	return nil
}
