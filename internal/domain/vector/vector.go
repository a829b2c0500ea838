// Package vector holds the float32 kernels shared by the ranker and the evaluator.
package vector

import (
	"math"
	"slices"

	"github.com/hupe1980/vecgo/distance"
)

// Epsilon is the norm floor below which a vector is treated as degenerate.
const Epsilon = 1e-12

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Sqrt(float64(distance.Dot(v, v)))
}

// IsDegenerate reports whether v has a near-zero norm and cannot be normalized.
func IsDegenerate(v []float32) bool {
	return Norm(v) < Epsilon
}

// Normalize scales v to unit L2 norm in place: v / max(||v||, Epsilon).
// Returns false and leaves v untouched when ||v|| < Epsilon.
func Normalize(v []float32) bool {
	n := Norm(v)
	if n < Epsilon {
		return false
	}
	inv := 1 / math.Max(n, Epsilon)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return true
}

// Normalized returns a unit-norm copy of v. The second value is false for degenerate input,
// in which case the copy is returned unnormalized.
func Normalized(v []float32) ([]float32, bool) {
	out := slices.Clone(v)
	ok := Normalize(out)
	return out, ok
}

// Euclidean returns the L2 distance between a and b. Lengths must match.
func Euclidean(a, b []float32) float64 {
	return math.Sqrt(float64(distance.SquaredL2(a, b)))
}

// Dot returns the dot product of a and b. Lengths must match.
func Dot(a, b []float32) float64 {
	return float64(distance.Dot(a, b))
}
