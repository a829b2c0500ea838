package metric

import (
	"fmt"
	"strings"
)

// Metric is the scoring function a query is ranked with.
type Metric string

// Metric constants.
const (
	// Euclidean ranks by L2 distance, lower is better.
	Euclidean Metric = "euclidean"
	// Cosine ranks by dot product of unit vectors, higher is better.
	Cosine Metric = "cosine"
)

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Euclidean || m == Cosine
}

// Parse converts a case-insensitive name into a Metric. Empty input yields Euclidean.
func Parse(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return Euclidean, nil
	}
	if !m.IsValid() {
		return "", fmt.Errorf("invalid metric: %q", s)
	}
	return m, nil
}

// HigherIsBetter reports the score direction.
func (m Metric) HigherIsBetter() bool { return m == Cosine }

// Better reports whether score a ranks strictly ahead of score b.
func (m Metric) Better(a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}

// Passes applies the match gate to the best score.
// Euclidean rejects best > threshold; cosine rejects best < threshold.
func (m Metric) Passes(best, threshold float64) bool {
	if m.HigherIsBetter() {
		return best >= threshold
	}
	return best <= threshold
}

// ScoreName is the label used for the score in messages and payloads.
func (m Metric) ScoreName() string {
	if m.HigherIsBetter() {
		return "similarity"
	}
	return "distance"
}
