// Package topk selects the k best rows of a score vector without sorting all of it.
//
// Rows are ordered by score (ascending, or descending when higher is better), ties by
// ascending row index, NaN last. Select partitions with quickselect in expected O(N) and
// then sorts only the k winners; SelectFullSort is the O(N log N) reference it must match.
package topk

import (
	"math"
	"math/bits"
	"slices"
)

// Select returns the indices of the k best scores in rank order. k is clamped to len(scores).
func Select(scores []float64, k int, higherIsBetter bool) []int {
	n := len(scores)
	k = min(k, n)
	if k <= 0 {
		return []int{}
	}

	idx := identity(n)
	o := order{scores: scores, higherIsBetter: higherIsBetter}
	if k < n {
		o.selectK(idx, k)
	}
	out := make([]int, k)
	copy(out, idx[:k])
	slices.SortFunc(out, o.compare)
	return out
}

// SelectFullSort sorts every row and keeps the first k.
func SelectFullSort(scores []float64, k int, higherIsBetter bool) []int {
	n := len(scores)
	k = min(k, n)
	if k <= 0 {
		return []int{}
	}
	idx := identity(n)
	o := order{scores: scores, higherIsBetter: higherIsBetter}
	slices.SortFunc(idx, o.compare)
	return slices.Clip(idx[:k])
}

type order struct {
	scores         []float64
	higherIsBetter bool
}

// ahead reports whether row a ranks strictly before row b.
func (o order) ahead(a, b int) bool {
	sa, sb := o.scores[a], o.scores[b]
	na, nb := math.IsNaN(sa), math.IsNaN(sb)
	switch {
	case na && nb:
		return a < b
	case na:
		return false
	case nb:
		return true
	}
	if sa != sb {
		if o.higherIsBetter {
			return sa > sb
		}
		return sa < sb
	}
	return a < b
}

func (o order) compare(a, b int) int {
	switch {
	case a == b:
		return 0
	case o.ahead(a, b):
		return -1
	default:
		return 1
	}
}

// selectK rearranges idx so that idx[:k] holds the k best rows, in no particular order.
// After 2·log2(n) partition rounds without convergence the remaining window is sorted.
func (o order) selectK(idx []int, k int) {
	lo, hi := 0, len(idx)-1
	target := k - 1
	budget := 2 * bits.Len(uint(len(idx)))
	for lo < hi {
		if budget == 0 {
			slices.SortFunc(idx[lo:hi+1], o.compare)
			return
		}
		budget--

		p := o.partition(idx, lo, hi)
		switch {
		case p == target:
			return
		case p > target:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func (o order) partition(idx []int, lo, hi int) int {
	mid := lo + (hi-lo)/2
	// median of three into hi
	if o.ahead(idx[mid], idx[lo]) {
		idx[mid], idx[lo] = idx[lo], idx[mid]
	}
	if o.ahead(idx[hi], idx[lo]) {
		idx[hi], idx[lo] = idx[lo], idx[hi]
	}
	if o.ahead(idx[mid], idx[hi]) {
		idx[mid], idx[hi] = idx[hi], idx[mid]
	}

	pivot := idx[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if o.ahead(idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]
	return store
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
