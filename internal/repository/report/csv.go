// Package report writes evaluation results as CSV tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kailas-cloud/dishdex/internal/domain/evaluation"
)

// Header is the column layout; group "*" marks overall rows.
var Header = []string{"model", "k", "group", "map"}

// Section is the report of one embedding space.
type Section struct {
	Model  string
	Report evaluation.Report
}

// Write emits the header followed by every row of every section, in section order.
func Write(w io.Writer, sections ...Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range sections {
		for _, r := range s.Report.Rows() {
			rec := []string{
				s.Model,
				strconv.Itoa(r.K),
				r.Group,
				strconv.FormatFloat(r.MAP, 'f', 6, 64),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteFile writes the report to path, replacing any existing file.
func WriteFile(path string, sections ...Section) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return Write(f, sections...)
}
