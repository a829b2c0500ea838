// Package evaluate measures self-retrieval quality of an embedding store as mAP@k.
package evaluate

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/hupe1980/vecgo/distance"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/embstore"
	"github.com/kailas-cloud/dishdex/internal/domain/evaluation"
	"github.com/kailas-cloud/dishdex/internal/domain/search/topk"
)

// Evaluator ranks every row of a store against all other rows by cosine similarity
// and averages AP@k per query. O(N²): offline use only, on an immutable store.
type Evaluator struct {
	workers int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds the number of rows ranked concurrently. Values < 1 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// New creates an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, o := range opts {
		o(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Evaluate computes overall and per-group mAP for every cutoff in ks.
// labels assigns a group to each row; rows whose group has fewer than two members are skipped.
// The store is expected to be L2-normalized.
func (e *Evaluator) Evaluate(
	ctx context.Context, store *embstore.Store, labels []string, ks []int,
) (evaluation.Report, error) {
	return e.run(ctx, store, labels, ks, ks)
}

// EvaluateStore uses the store's own groups as labels and reports overall mAP for overallKs
// and per-group mAP for groupKs.
func (e *Evaluator) EvaluateStore(
	ctx context.Context, store *embstore.Store, overallKs, groupKs []int,
) (evaluation.Report, error) {
	if store == nil {
		return evaluation.Report{}, domain.ErrEmptyStore
	}
	return e.run(ctx, store, store.Labels(), overallKs, groupKs)
}

func (e *Evaluator) run(
	ctx context.Context, store *embstore.Store, labels []string, overallKs, groupKs []int,
) (evaluation.Report, error) {
	if store.IsEmpty() {
		return evaluation.Report{}, domain.ErrEmptyStore
	}
	n := store.Size()
	if len(labels) != n {
		return evaluation.Report{}, fmt.Errorf("%w: %d labels for %d rows", domain.ErrInvalidRequest, len(labels), n)
	}
	overallKs = evaluation.NormalizeKs(overallKs)
	groupKs = evaluation.NormalizeKs(groupKs)
	allKs := evaluation.NormalizeKs(append(slices.Clone(overallKs), groupKs...))
	if len(allKs) == 0 {
		return evaluation.Report{}, fmt.Errorf("%w: no positive cutoffs", domain.ErrInvalidRequest)
	}

	sizes := make(map[string]int)
	for _, l := range labels {
		sizes[l]++
	}

	// aps[i][j] is AP@allKs[j] for row i; nil for skipped rows
	aps := make([][]float64, n)
	maxK := min(allKs[len(allKs)-1], n-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range n {
		if sizes[labels[i]] < 2 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ranked := neighbours(store, i, maxK)
			row := make([]float64, len(allKs))
			for j, k := range allKs {
				row[j] = averagePrecision(ranked, labels, labels[i], k)
			}
			aps[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evaluation.Report{}, fmt.Errorf("evaluate: %w", err)
	}

	return aggregate(aps, labels, allKs, overallKs, groupKs), nil
}

// neighbours returns the k rows most similar to row i, most similar first, ties by index.
// The row itself scores -Inf.
func neighbours(store *embstore.Store, i, k int) []int {
	q := store.Vector(i)
	sims := make([]float64, store.Size())
	for j := range sims {
		sims[j] = float64(distance.Dot(q, store.Vector(j)))
	}
	sims[i] = math.Inf(-1)
	return topk.Select(sims, k, true)
}

// averagePrecision is the mean of hits/position over the hit positions within the first k
// neighbours; 0 when there is no hit.
func averagePrecision(ranked []int, labels []string, label string, k int) float64 {
	k = min(k, len(ranked))
	hits := 0
	sum := 0.0
	for pos, j := range ranked[:k] {
		if labels[j] == label {
			hits++
			sum += float64(hits) / float64(pos+1)
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

func aggregate(aps [][]float64, labels []string, allKs, overallKs, groupKs []int) evaluation.Report {
	rep := evaluation.NewReport()
	pos := make(map[int]int, len(allKs))
	for j, k := range allKs {
		pos[k] = j
	}

	type acc struct {
		sum   float64
		count int
	}
	overall := make([]acc, len(allKs))
	perGroup := make(map[string][]acc)

	for i, row := range aps {
		if row == nil {
			rep.Skipped++
			continue
		}
		rep.Queries++
		g := perGroup[labels[i]]
		if g == nil {
			g = make([]acc, len(allKs))
			perGroup[labels[i]] = g
		}
		for j, ap := range row {
			overall[j].sum += ap
			overall[j].count++
			g[j].sum += ap
			g[j].count++
		}
	}

	for _, k := range overallKs {
		a := overall[pos[k]]
		if a.count == 0 {
			rep.Overall[k] = 0
			continue
		}
		rep.Overall[k] = a.sum / float64(a.count)
	}
	for _, k := range groupKs {
		byGroup := make(map[string]float64, len(perGroup))
		for label, g := range perGroup {
			a := g[pos[k]]
			byGroup[label] = a.sum / float64(a.count)
		}
		rep.PerGroup[k] = byGroup
	}
	return rep
}
