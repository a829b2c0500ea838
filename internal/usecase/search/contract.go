package search

import (
	"context"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/catalog"
)

// CatalogReader returns the snapshot a request should be served from. Nil when nothing is loaded.
type CatalogReader interface {
	Current() *catalog.Snapshot
}

// DishLookup resolves display metadata for a group. Returns domain.ErrNotFound when absent.
type DishLookup interface {
	Lookup(ctx context.Context, group string) (domain.Dish, error)
}
