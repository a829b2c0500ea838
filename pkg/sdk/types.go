package dishdex

import (
	"context"
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
)

// Extractor turns raw image bytes into an embedding for one space.
// Implementations may also provide HealthCheck(ctx) error.
type Extractor interface {
	Extract(ctx context.Context, space string, image []byte) ([]float32, error)
}

// Metric is the scoring function a query is ranked with.
type Metric string

// Supported metrics.
const (
	// Euclidean ranks by L2 distance, lower is better.
	Euclidean Metric = Metric(metric.Euclidean)
	// Cosine ranks by similarity of unit vectors, higher is better.
	Cosine Metric = Metric(metric.Cosine)
)

// Space describes one embedding space and the snapshot object it is read from.
type Space struct {
	Name       string
	Model      string
	Dimensions int    // 0 accepts whatever the snapshot holds
	Object     string // defaults to <Name>.parquet
}

// Dish is the display record of one dish group.
type Dish = domain.Dish

// Params tunes a search. Zero values mean k=100, euclidean and threshold 0.9.
type Params struct {
	K         int
	Metric    Metric
	Threshold *float64
}

// Threshold returns a pointer for Params.Threshold.
func Threshold(v float64) *float64 { return &v }

// Match is one ranked catalog image.
type Match struct {
	ID    string
	Group string
	Score float64
}

// SearchResult is the outcome of ranking one query in one space.
type SearchResult struct {
	Space     string
	Matched   bool
	Metric    Metric
	Threshold float64
	BestScore float64
	Message   string

	// Best, SameGroup and Related are set only when Matched.
	Best      *Match
	SameGroup []Match
	Related   []Match

	// Dish is set only when Matched.
	Dish *Dish
	// DegenerateQuery marks a near-zero query vector that was ranked unnormalized.
	DegenerateQuery bool
}

// SpaceResult is one space of a fused search. Err is set when that space failed.
type SpaceResult struct {
	SearchResult
	Err error
}

// FusedResult holds every space's result in catalog order and the dish of the
// primary space's best match.
type FusedResult struct {
	Spaces []SpaceResult
	Dish   *Dish
}

// CatalogInfo describes the loaded snapshot.
type CatalogInfo struct {
	Rows     int
	LoadedAt time.Time
	Spaces   []SpaceInfo
}

// SpaceInfo describes one loaded space.
type SpaceInfo struct {
	Name       string
	Model      string
	Dimensions int
	Degenerate int
}

// Report is the mAP@k of one space. Overall is keyed by k,
// PerGroup by k and then dish group.
type Report struct {
	Space    string
	Overall  map[int]float64
	PerGroup map[int]map[string]float64
	Queries  int
	Skipped  int
}
