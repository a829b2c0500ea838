package dishdex

import "github.com/kailas-cloud/dishdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrEmptyStore        = domain.ErrEmptyStore
	ErrStoreLoad         = domain.ErrStoreLoad
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrUnknownSpace      = domain.ErrUnknownSpace
	ErrExtractorError    = domain.ErrExtractorError
	ErrNotFound          = domain.ErrNotFound
)
