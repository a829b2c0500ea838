package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
)

func mustStore(t *testing.T, vecs [][]float32, ids []string) *embstore.Store {
	t.Helper()
	s, err := embstore.Build(vecs, ids)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	return s
}

func TestNewSnapshot_OK(t *testing.T) {
	ids := []string{"a/1.jpg", "b/1.jpg"}
	cnn := Space{Config: domain.SpaceConfig{Name: "cnn", Dimensions: 3}, Store: mustStore(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, ids)}
	vit := Space{Config: domain.SpaceConfig{Name: "vit", Dimensions: 2}, Store: mustStore(t, [][]float32{{1, 0}, {0, 1}}, ids)}

	now := time.Now()
	snap, err := NewSnapshot([]Space{cnn, vit}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Primary().Name() != "cnn" {
		t.Errorf("Primary() = %q", snap.Primary().Name())
	}
	if sp, ok := snap.Space("vit"); !ok || sp.Store.Dim() != 2 {
		t.Errorf("Space(vit) = %+v, %v", sp, ok)
	}
	if _, ok := snap.Space("clip"); ok {
		t.Error("unexpected space")
	}
	if snap.Size() != 2 || len(snap.Spaces()) != 2 || !snap.LoadedAt().Equal(now) {
		t.Errorf("size=%d spaces=%d", snap.Size(), len(snap.Spaces()))
	}
}

func TestNewSnapshot_NoSpaces(t *testing.T) {
	if _, err := NewSnapshot(nil, time.Now()); !errors.Is(err, domain.ErrStoreLoad) {
		t.Fatalf("expected ErrStoreLoad, got %v", err)
	}
}

func TestNewSnapshot_Misaligned(t *testing.T) {
	cnn := Space{Config: domain.SpaceConfig{Name: "cnn"}, Store: mustStore(t, [][]float32{{1}, {2}}, []string{"a/1.jpg", "b/1.jpg"})}
	vit := Space{Config: domain.SpaceConfig{Name: "vit"}, Store: mustStore(t, [][]float32{{1}, {2}}, []string{"b/1.jpg", "a/1.jpg"})}
	_, err := NewSnapshot([]Space{cnn, vit}, time.Now())
	var sle *domain.StoreLoadError
	if !errors.As(err, &sle) || sle.Source != "vit" {
		t.Fatalf("expected StoreLoadError for vit, got %v", err)
	}

	short := Space{Config: domain.SpaceConfig{Name: "vit"}, Store: mustStore(t, [][]float32{{1}}, []string{"a/1.jpg"})}
	if _, err := NewSnapshot([]Space{cnn, short}, time.Now()); !errors.Is(err, domain.ErrStoreLoad) {
		t.Fatalf("expected ErrStoreLoad, got %v", err)
	}
}

func TestNewSnapshot_ConfiguredDimMismatch(t *testing.T) {
	cnn := Space{Config: domain.SpaceConfig{Name: "cnn", Dimensions: 1280}, Store: mustStore(t, [][]float32{{1, 0}}, []string{"a/1.jpg"})}
	_, err := NewSnapshot([]Space{cnn}, time.Now())
	if !errors.Is(err, domain.ErrStoreLoad) || !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected StoreLoad wrapping DimensionMismatch, got %v", err)
	}
}

func TestNewSnapshot_DuplicateSpace(t *testing.T) {
	s := mustStore(t, [][]float32{{1}}, []string{"a/1.jpg"})
	sp := Space{Config: domain.SpaceConfig{Name: "cnn"}, Store: s}
	if _, err := NewSnapshot([]Space{sp, sp}, time.Now()); !errors.Is(err, domain.ErrStoreLoad) {
		t.Fatalf("expected ErrStoreLoad, got %v", err)
	}
}
