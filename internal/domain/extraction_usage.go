package domain

import (
	"context"
	"sync/atomic"
)

type extractionUsageKey struct{}

// ExtractionUsage collects embedding-cache outcomes for a single HTTP request.
// The handler puts a pointer into the context before calling the service;
// the cache decorator writes to it (possibly from several spaces at once);
// the handler reads it for response headers.
type ExtractionUsage struct {
	hits   atomic.Int32
	misses atomic.Int32
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ExtractionUsage) {
	u := &ExtractionUsage{}
	return context.WithValue(ctx, extractionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ExtractionUsage {
	u, _ := ctx.Value(extractionUsageKey{}).(*ExtractionUsage)
	return u
}

// AddHit records an embedding served from cache.
func (u *ExtractionUsage) AddHit() {
	if u != nil {
		u.hits.Add(1)
	}
}

// AddMiss records an embedding computed by the extractor.
func (u *ExtractionUsage) AddMiss() {
	if u != nil {
		u.misses.Add(1)
	}
}

// Hits returns the number of cache hits.
func (u *ExtractionUsage) Hits() int {
	if u == nil {
		return 0
	}
	return int(u.hits.Load())
}

// Misses returns the number of extractor calls.
func (u *ExtractionUsage) Misses() int {
	if u == nil {
		return 0
	}
	return int(u.misses.Load())
}
