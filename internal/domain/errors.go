package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch signals a vector length that disagrees with the store dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyStore signals a query against a store with no rows.
	ErrEmptyStore = errors.New("embedding store is empty")
	// ErrStoreLoad signals malformed persisted vectors or identifiers.
	ErrStoreLoad = errors.New("embedding store load failed")
	// ErrInvalidRequest signals invalid ranking parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownSpace signals an embedding space that is not loaded.
	ErrUnknownSpace = errors.New("unknown embedding space")
	// ErrExtractorError signals an image-feature extractor failure.
	ErrExtractorError = errors.New("extractor error")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}

// StoreLoadError wraps ErrStoreLoad with the offending source and cause.
type StoreLoadError struct {
	Source string
	Err    error
}

func (e *StoreLoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreLoad.Error(), e.Source, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *StoreLoadError) Unwrap() []error { return []error{ErrStoreLoad, e.Err} }

// NewStoreLoadError creates a store load error for the given source.
func NewStoreLoadError(source string, err error) error {
	return &StoreLoadError{Source: source, Err: err}
}
