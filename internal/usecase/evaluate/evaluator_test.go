package evaluate

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
)

func buildStore(t *testing.T, vecs [][]float32, ids []string) *embstore.Store {
	t.Helper()
	s, err := embstore.Build(vecs, ids)
	require.NoError(t, err)
	s.Normalize()
	return s
}

func TestAveragePrecision(t *testing.T) {
	labels := []string{"q", "a", "b", "a", "a"}
	ranked := []int{1, 2, 3, 4}

	// hits at positions 1, 3, 4: (1/1 + 2/3 + 3/4) / 3
	assert.InDelta(t, (1.0+2.0/3+3.0/4)/3, averagePrecision(ranked, labels, "a", 4), 1e-12)
	// hit at position 1 only
	assert.InDelta(t, 1.0, averagePrecision(ranked, labels, "a", 2), 1e-12)
	// k beyond list is clamped
	assert.InDelta(t, (1.0+2.0/3+3.0/4)/3, averagePrecision(ranked, labels, "a", 50), 1e-12)
	// no hit
	assert.Zero(t, averagePrecision(ranked, labels, "z", 4))
	// first hit at position 2
	assert.InDelta(t, 0.5, averagePrecision(ranked, labels, "b", 4), 1e-12)
}

func TestEvaluate_PerfectClusters(t *testing.T) {
	// three well separated groups of four identical-ish vectors
	vecs := [][]float32{
		{1, 0, 0}, {0.99, 0.01, 0}, {0.98, 0.02, 0}, {0.97, 0, 0.03},
		{0, 1, 0}, {0.01, 0.99, 0}, {0, 0.98, 0.02}, {0.03, 0.97, 0},
		{0, 0, 1}, {0.01, 0, 0.99}, {0, 0.02, 0.98}, {0.03, 0, 0.97},
	}
	ids := make([]string, len(vecs))
	for i := range ids {
		ids[i] = string(rune('a'+i/4)) + "/x.jpg"
	}
	store := buildStore(t, vecs, ids)

	rep, err := New().EvaluateStore(context.Background(), store, []int{1, 2, 3}, []int{3})
	require.NoError(t, err)
	for _, k := range []int{1, 2, 3} {
		assert.InDelta(t, 1.0, rep.Overall[k], 1e-12, "k=%d", k)
	}
	for _, g := range []string{"a", "b", "c"} {
		assert.InDelta(t, 1.0, rep.PerGroup[3][g], 1e-12, "group %s", g)
	}
	assert.Equal(t, 12, rep.Queries)
	assert.Zero(t, rep.Skipped)
}

func TestEvaluate_SingletonGroupExcluded(t *testing.T) {
	vecs := [][]float32{{1, 0}, {1, 0}, {0, 1}}
	store := buildStore(t, vecs, []string{"a/1.jpg", "a/2.jpg", "solo/1.jpg"})

	rep, err := New().Evaluate(context.Background(), store, store.Labels(), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Queries)
	assert.Equal(t, 1, rep.Skipped)
	assert.NotContains(t, rep.PerGroup[1], "solo")
	assert.InDelta(t, 1.0, rep.Overall[1], 1e-12)
	// the "solo" row is still a (wrong) neighbour, but the hit is at position 1
	assert.InDelta(t, 1.0, rep.Overall[2], 1e-12)
}

func TestEvaluate_NoQueries(t *testing.T) {
	store := buildStore(t, [][]float32{{1, 0}, {0, 1}}, []string{"a/1.jpg", "b/1.jpg"})
	rep, err := New().EvaluateStore(context.Background(), store, []int{1, 5}, []int{5})
	require.NoError(t, err)
	assert.Zero(t, rep.Queries)
	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, 0.0, rep.Overall[1])
	assert.Equal(t, 0.0, rep.Overall[5])
	assert.Empty(t, rep.PerGroup[5])
}

func TestEvaluate_MixedRanking(t *testing.T) {
	// row 0 ("a") is closest to row 2 ("b"), then row 1 ("a")
	vecs := [][]float32{{1, 0}, {0.6, 0.8}, {0.8, 0.6}, {0.6, 0.8}}
	store := buildStore(t, vecs, []string{"a/1.jpg", "a/2.jpg", "b/1.jpg", "b/2.jpg"})

	rep, err := New(WithWorkers(1)).Evaluate(context.Background(), store, store.Labels(), []int{1, 3})
	require.NoError(t, err)

	// row0 a: sims 1:0.6, 2:0.8, 3:0.6 -> order 2,1,3 -> AP@1=0, AP@3=1/2
	// row1 a: sims 0:0.6, 2:0.96, 3:1.0 -> order 3,2,0 -> AP@1=0, AP@3=1/3
	// row2 b: sims 0:0.8, 1:0.96, 3:0.96 -> order 1,3,0 -> AP@1=0, AP@3=1/2
	// row3 b: sims 0:0.6, 1:1.0, 2:0.96 -> order 1,2,0 -> AP@1=0, AP@3=1/2
	assert.InDelta(t, 0.0, rep.Overall[1], 1e-6)
	assert.InDelta(t, (0.5+1.0/3+0.5+0.5)/4, rep.Overall[3], 1e-6)
	assert.InDelta(t, (0.5+1.0/3)/2, rep.PerGroup[3]["a"], 1e-6)
	assert.InDelta(t, 0.5, rep.PerGroup[3]["b"], 1e-6)
}

func TestEvaluate_WorkersDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 8))
	n, dim := 120, 12
	vecs := make([][]float32, n)
	ids := make([]string, n)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vecs[i] = v
		ids[i] = string(rune('a'+rng.IntN(6))) + "/x.jpg"
	}
	store := buildStore(t, vecs, ids)

	one, err := New(WithWorkers(1)).EvaluateStore(context.Background(), store, []int{1, 5, 10, 20}, []int{5, 25})
	require.NoError(t, err)
	many, err := New(WithWorkers(8)).EvaluateStore(context.Background(), store, []int{1, 5, 10, 20}, []int{5, 25})
	require.NoError(t, err)
	assert.Equal(t, one, many)

	for k, v := range one.Overall {
		assert.GreaterOrEqual(t, v, 0.0, "k=%d", k)
		assert.LessOrEqual(t, v, 1.0, "k=%d", k)
	}
	assert.Len(t, one.PerGroup, 2)
	assert.NotContains(t, one.Overall, 25, "per-group-only cutoff must not appear overall")
}

func TestEvaluate_Errors(t *testing.T) {
	ctx := context.Background()
	empty, err := embstore.Build(nil, nil)
	require.NoError(t, err)
	_, err = New().EvaluateStore(ctx, empty, []int{1}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyStore)

	_, err = New().EvaluateStore(ctx, nil, []int{1}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyStore)

	store := buildStore(t, [][]float32{{1}, {1}}, []string{"a/1.jpg", "a/2.jpg"})
	_, err = New().Evaluate(ctx, store, []string{"a"}, []int{1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = New().Evaluate(ctx, store, store.Labels(), []int{0, -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestEvaluate_Cancelled(t *testing.T) {
	store := buildStore(t, [][]float32{{1}, {1}}, []string{"a/1.jpg", "a/2.jpg"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Evaluate(ctx, store, store.Labels(), []int{1})
	assert.ErrorIs(t, err, context.Canceled)
}
