// Package extraction decorates image feature extractors with validation and logging.
package extraction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
)

// InstrumentedExtractor wraps an Extractor with space validation, dimension checks and logging.
// Transport metrics (requests, duration) are recorded in transport/extractor.
type InstrumentedExtractor struct {
	inner  domain.Extractor
	spaces map[string]domain.SpaceConfig
	logger *zap.Logger
}

// NewInstrumentedExtractor wraps an extractor. Only the given spaces are accepted.
func NewInstrumentedExtractor(
	inner domain.Extractor, spaces []domain.SpaceConfig, logger *zap.Logger,
) *InstrumentedExtractor {
	byName := make(map[string]domain.SpaceConfig, len(spaces))
	for _, sp := range spaces {
		byName[sp.Name] = sp
	}
	return &InstrumentedExtractor{inner: inner, spaces: byName, logger: logger}
}

// Extract validates the request, delegates to the inner extractor and checks the
// returned dimensionality against the space configuration.
func (p *InstrumentedExtractor) Extract(ctx context.Context, space string, image []byte) ([]float32, error) {
	sp, ok := p.spaces[space]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSpace, space)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}

	start := time.Now()

	vec, err := p.inner.Extract(ctx, space, image)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Feature extraction failed",
			zap.String("space", space),
			zap.String("model", sp.Model),
			zap.Int("image_bytes", len(image)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("extract: %w", err)
	}

	if sp.Dimensions > 0 && len(vec) != sp.Dimensions {
		p.logger.Error("Extractor returned unexpected dimensions",
			zap.String("space", space),
			zap.String("model", sp.Model),
			zap.Int("expected", sp.Dimensions),
			zap.Int("got", len(vec)),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractorError, domain.NewDimensionMismatch(sp.Dimensions, len(vec)))
	}

	p.logger.Debug("Feature extraction completed",
		zap.String("space", space),
		zap.String("model", sp.Model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(vec)),
		zap.Int("image_bytes", len(image)),
	)

	return vec, nil
}

// HealthCheck delegates to the inner extractor when it supports health checks.
func (p *InstrumentedExtractor) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("extractor health: %w", err)
		}
	}
	return nil
}
