package request

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
)

// Ranking parameter limits.
const (
	DefaultK         = 100
	MaxK             = 1000
	DefaultThreshold = 0.9
)

// Request is a validated ranking configuration: how many results, which metric, which gate.
type Request struct {
	k         int
	metric    metric.Metric
	threshold float64
}

// New validates and normalizes ranking parameters.
// Defaults: k=100, metric=euclidean. k above MaxK is clamped.
// The threshold is always explicit; its direction follows the metric.
func New(k int, m metric.Metric, threshold float64) (Request, error) {
	if m == "" {
		m = metric.Euclidean
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid metric: %q", domain.ErrInvalidRequest, m)
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return Request{}, fmt.Errorf("%w: threshold must be finite", domain.ErrInvalidRequest)
	}
	switch m {
	case metric.Euclidean:
		if threshold < 0 {
			return Request{}, fmt.Errorf("%w: euclidean threshold must be >= 0", domain.ErrInvalidRequest)
		}
	case metric.Cosine:
		if threshold < -1 || threshold > 1 {
			return Request{}, fmt.Errorf("%w: cosine threshold must be between -1 and 1", domain.ErrInvalidRequest)
		}
	}

	return Request{k: k, metric: m, threshold: threshold}, nil
}

// Default returns k=100, euclidean, threshold 0.9.
func Default() Request {
	return Request{k: DefaultK, metric: metric.Euclidean, threshold: DefaultThreshold}
}

// K returns the requested number of results before clamping to the store size.
func (r *Request) K() int { return r.k }

// Metric returns the scoring function.
func (r *Request) Metric() metric.Metric { return r.metric }

// Threshold returns the match gate applied to the best score.
func (r *Request) Threshold() float64 { return r.threshold }

// WithK returns a copy with a different k, re-validated.
func (r Request) WithK(k int) (Request, error) {
	return New(k, r.metric, r.threshold)
}
