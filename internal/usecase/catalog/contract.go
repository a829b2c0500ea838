package catalog

import (
	"context"

	domcat "github.com/kailas-cloud/dishdex/internal/domain/catalog"
)

// Loader reads every configured embedding space from persistent storage.
// Stores are returned unnormalized; the holder normalizes them before publishing.
type Loader interface {
	Load(ctx context.Context) ([]domcat.Space, error)
}
