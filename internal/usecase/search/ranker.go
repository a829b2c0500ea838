package search

import (
	"math"

	"github.com/hupe1980/vecgo/distance"

	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
	"github.com/kailas-cloud/dishdex/internal/domain/search/result"
	"github.com/kailas-cloud/dishdex/internal/domain/search/topk"
	"github.com/kailas-cloud/dishdex/internal/domain/vector"
)

// Rank scores every row of store against query and returns the min(k, N) best rows in rank order.
// Euclidean scores are L2 distances; cosine scores are dot products of the unit query with the rows.
func Rank(query []float32, store *embstore.Store, k int, m metric.Metric) ([]result.Result, error) {
	if err := store.CheckQuery(query); err != nil {
		return nil, err
	}

	scores := make([]float64, store.Size())
	switch m {
	case metric.Cosine:
		q, _ := vector.Normalized(query)
		for i := range scores {
			scores[i] = float64(distance.Dot(q, store.Vector(i)))
		}
	default:
		// squared L2 orders rows the same as L2; sqrt only the winners
		for i := range scores {
			scores[i] = float64(distance.SquaredL2(query, store.Vector(i)))
		}
	}

	idx := topk.Select(scores, k, m.HigherIsBetter())
	out := make([]result.Result, len(idx))
	for j, i := range idx {
		score := scores[i]
		if m != metric.Cosine {
			score = math.Sqrt(score)
		}
		out[j] = result.New(store.ID(i), store.Group(i), score)
	}
	return out, nil
}

// Search ranks query against store, gates the best score with the request threshold
// and partitions the ranked list by the best match's group.
// A failed gate is not an error: it yields an unmatched set.
func Search(query []float32, store *embstore.Store, req request.Request) (result.Set, error) {
	ranked, err := Rank(query, store, req.K(), req.Metric())
	if err != nil {
		return result.Set{}, err
	}

	best := ranked[0]
	if !req.Metric().Passes(best.Score(), req.Threshold()) {
		return result.Unmatched(best.Score(), req.Metric(), req.Threshold()), nil
	}

	same, related := Partition(ranked)
	return result.Matched(best, same, related, req.Metric(), req.Threshold()), nil
}
