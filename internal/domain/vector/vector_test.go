package vector

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UnitNorm(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 200; trial++ {
		dim := 1 + rng.IntN(64)
		v := make([]float32, dim)
		for i := range v {
			v[i] = float32(rng.NormFloat64() * math.Pow(10, float64(rng.IntN(6)-3)))
		}
		if Norm(v) < Epsilon {
			continue
		}
		require.True(t, Normalize(v))
		assert.InDelta(t, 1.0, Norm(v), 1e-6, "trial %d dim %d", trial, dim)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	v := []float32{0, 0, 0}
	assert.False(t, Normalize(v))
	assert.Equal(t, []float32{0, 0, 0}, v)

	tiny := []float32{1e-20, 0}
	assert.True(t, IsDegenerate(tiny))
	assert.False(t, Normalize(tiny))
	assert.Equal(t, float32(1e-20), tiny[0], "degenerate vector must pass through unchanged")
}

func TestNormalize_Empty(t *testing.T) {
	assert.False(t, Normalize(nil))
	assert.Zero(t, Norm(nil))
}

func TestNormalized_DoesNotMutate(t *testing.T) {
	src := []float32{3, 4}
	out, ok := Normalized(src)
	require.True(t, ok)
	assert.Equal(t, []float32{3, 4}, src)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
}

func TestEuclideanAndDot(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.InDelta(t, math.Sqrt2, Euclidean(a, b), 1e-6)
	assert.InDelta(t, 0, Dot(a, b), 1e-9)
	assert.InDelta(t, 1, Dot(a, a), 1e-9)
	assert.InDelta(t, 0, Euclidean(a, a), 1e-9)
}
