// Package snapshot persists embedding spaces as parquet files of (path, vector) rows.
package snapshot

// Row is one stored image embedding. Path is relative to the dataset root,
// its first segment is the dish group.
type Row struct {
	Path   string    `parquet:"path"`
	Vector []float32 `parquet:"vector,list"`
}
