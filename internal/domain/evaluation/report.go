// Package evaluation holds the result of a self-retrieval mAP@k run.
package evaluation

import (
	"cmp"
	"slices"
)

// AllGroups is the group label of overall rows.
const AllGroups = "*"

// Default cutoffs.
var (
	DefaultOverallKs = []int{1, 5, 10, 20}
	DefaultGroupKs   = []int{5, 25}
)

// Report maps cutoff k to overall mAP and (k, group) to per-group mAP.
type Report struct {
	Overall  map[int]float64
	PerGroup map[int]map[string]float64
	// Queries is the number of rows that were evaluated.
	Queries int
	// Skipped is the number of rows in singleton groups.
	Skipped int
}

// NewReport creates an empty report.
func NewReport() Report {
	return Report{
		Overall:  make(map[int]float64),
		PerGroup: make(map[int]map[string]float64),
	}
}

// Row is one tabular line of a report.
type Row struct {
	K     int
	Group string
	MAP   float64
}

// Rows flattens the report: overall rows first (group "*"), then per-group rows,
// each sorted by k and then group.
func (r Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Overall))
	for k, v := range r.Overall {
		rows = append(rows, Row{K: k, Group: AllGroups, MAP: v})
	}
	slices.SortFunc(rows, func(a, b Row) int { return cmp.Compare(a.K, b.K) })

	var groups []Row
	for k, byGroup := range r.PerGroup {
		for g, v := range byGroup {
			groups = append(groups, Row{K: k, Group: g, MAP: v})
		}
	}
	slices.SortFunc(groups, func(a, b Row) int {
		if c := cmp.Compare(a.K, b.K); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
	return append(rows, groups...)
}

// NormalizeKs drops non-positive cutoffs, dedupes and sorts.
func NormalizeKs(ks []int) []int {
	out := make([]int, 0, len(ks))
	for _, k := range ks {
		if k > 0 {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
