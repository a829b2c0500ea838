package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
)

func sampleRows() []Row {
	return []Row{
		{Path: "pho/001.jpg", Vector: []float32{1, 0}},
		{Path: "pho/002.jpg", Vector: []float32{0.9, 0.1}},
		{Path: "banh_mi/001.jpg", Vector: []float32{0, 1}},
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleRows()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2].Path != "banh_mi/001.jpg" || rows[1].Vector[0] != 0.9 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestDecode_Garbage(t *testing.T) {
	data := []byte("definitely not parquet")
	if _, err := Decode(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileSource_PutOpen(t *testing.T) {
	src := NewFileSource(t.TempDir())
	data, err := EncodeBytes(sampleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := src.Put(context.Background(), "spaces/cnn.parquet", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, err := src.Open(context.Background(), "spaces/cnn.parquet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = obj.Close() }()
	if obj.Size() != int64(len(data)) {
		t.Errorf("size = %d, want %d", obj.Size(), len(data))
	}

	if _, err := src.Open(context.Background(), "missing.parquet"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func writeSpace(t *testing.T, dir, name string, rows []Row) {
	t.Helper()
	data, err := EncodeBytes(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeSpace(t, dir, "cnn.parquet", sampleRows())
	writeSpace(t, dir, "vit.parquet", []Row{
		{Path: "pho/001.jpg", Vector: []float32{1, 0, 0}},
		{Path: "pho/002.jpg", Vector: []float32{0, 1, 0}},
		{Path: "banh_mi/001.jpg", Vector: []float32{0, 0, 1}},
	})

	l := NewLoader(NewFileSource(dir), []SpaceFile{
		{Config: domain.SpaceConfig{Name: "cnn", Dimensions: 2}, Name: "cnn.parquet"},
		{Config: domain.SpaceConfig{Name: "vit", Dimensions: 3}, Name: "vit.parquet"},
	}, zap.NewNop())

	spaces, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spaces) != 2 || spaces[0].Name() != "cnn" || spaces[1].Name() != "vit" {
		t.Fatalf("unexpected spaces: %+v", spaces)
	}
	if spaces[0].Store.Size() != 3 || spaces[1].Store.Dim() != 3 {
		t.Errorf("unexpected store shapes")
	}
	if spaces[0].Store.Group(2) != "banh_mi" {
		t.Errorf("group = %q", spaces[0].Store.Group(2))
	}
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(NewFileSource(t.TempDir()), []SpaceFile{
		{Config: domain.SpaceConfig{Name: "cnn"}, Name: "cnn.parquet"},
	}, zap.NewNop())

	_, err := l.Load(context.Background())
	if !errors.Is(err, domain.ErrStoreLoad) {
		t.Fatalf("expected ErrStoreLoad, got %v", err)
	}
	var sle *domain.StoreLoadError
	if !errors.As(err, &sle) || sle.Source != "cnn.parquet" {
		t.Errorf("expected StoreLoadError for cnn.parquet, got %v", err)
	}
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected cause to be kept, got %v", err)
	}
}

func TestLoader_NonUniformRows(t *testing.T) {
	dir := t.TempDir()
	writeSpace(t, dir, "cnn.parquet", []Row{
		{Path: "a/1.jpg", Vector: []float32{1, 0}},
		{Path: "a/2.jpg", Vector: []float32{1, 0, 0}},
	})
	l := NewLoader(NewFileSource(dir), []SpaceFile{
		{Config: domain.SpaceConfig{Name: "cnn"}, Name: "cnn.parquet"},
	}, zap.NewNop())

	_, err := l.Load(context.Background())
	if !errors.Is(err, domain.ErrStoreLoad) || !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrStoreLoad wrapping ErrDimensionMismatch, got %v", err)
	}
}
