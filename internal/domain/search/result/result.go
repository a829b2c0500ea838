package result

import (
	"fmt"

	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
)

// Result is a single ranked catalog row.
type Result struct {
	id    string
	group string
	score float64
}

// New creates a ranked result.
func New(id, group string, score float64) Result {
	return Result{id: id, group: group, score: score}
}

// ID returns the catalog identifier (relative image path).
func (r *Result) ID() string { return r.id }

// Group returns the group key derived from the identifier.
func (r *Result) Group() string { return r.group }

// Score returns the distance (euclidean) or similarity (cosine).
func (r *Result) Score() float64 { return r.score }

// Set is the outcome of one thresholded search.
// An unmatched set has no best match and empty partitions.
type Set struct {
	best      *Result
	sameGroup []Result
	related   []Result
	matched   bool
	bestScore float64
	threshold float64
	metric    metric.Metric
}

// Matched creates a set whose best candidate passed the gate.
func Matched(best Result, sameGroup, related []Result, m metric.Metric, threshold float64) Set {
	if sameGroup == nil {
		sameGroup = []Result{}
	}
	if related == nil {
		related = []Result{}
	}
	return Set{
		best:      &best,
		sameGroup: sameGroup,
		related:   related,
		matched:   true,
		bestScore: best.score,
		threshold: threshold,
		metric:    m,
	}
}

// Unmatched creates a set for a best candidate that failed the gate.
func Unmatched(bestScore float64, m metric.Metric, threshold float64) Set {
	return Set{
		sameGroup: []Result{},
		related:   []Result{},
		bestScore: bestScore,
		threshold: threshold,
		metric:    m,
	}
}

// Best returns the top-1 result, nil when unmatched.
func (s *Set) Best() *Result { return s.best }

// SameGroup returns results sharing the best match's group, in rank order.
func (s *Set) SameGroup() []Result { return s.sameGroup }

// Related returns the remaining results, in rank order.
func (s *Set) Related() []Result { return s.related }

// Matched reports whether the best candidate passed the gate.
func (s *Set) Matched() bool { return s.matched }

// BestScore returns the score of the best candidate, whether or not it passed.
func (s *Set) BestScore() float64 { return s.bestScore }

// Threshold returns the gate the set was evaluated against.
func (s *Set) Threshold() float64 { return s.threshold }

// Metric returns the metric the set was ranked with.
func (s *Set) Metric() metric.Metric { return s.metric }

// Message describes a non-match. Empty for matched sets.
func (s *Set) Message() string {
	if s.matched {
		return ""
	}
	verb := "exceeds"
	if s.metric.HigherIsBetter() {
		verb = "is below"
	}
	return fmt.Sprintf("no matching dish found: best %s %.4f %s threshold %.4f",
		s.metric.ScoreName(), s.bestScore, verb, s.threshold)
}
