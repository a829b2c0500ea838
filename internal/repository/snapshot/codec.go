package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// Decode reads every row of a parquet snapshot.
func Decode(r io.ReaderAt, size int64) ([]Row, error) {
	rows, err := parquet.Read[Row](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// Encode writes rows as a zstd-compressed parquet snapshot.
func Encode(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// EncodeBytes encodes rows into memory.
func EncodeBytes(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
