package chi

import (
	"time"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/search/result"
)

// ErrorCode is the machine-readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeVectorDimMismatch ErrorCode = "vector_dim_mismatch"
	ErrorCodeUnknownSpace      ErrorCode = "unknown_space"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeEmptyStore        ErrorCode = "empty_store"
	ErrorCodeStoreLoadFailed   ErrorCode = "store_load_failed"
	ErrorCodeExtractorError    ErrorCode = "extractor_error"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// MatchItem is one ranked catalog image.
type MatchItem struct {
	ID       string  `json:"id"`
	Group    string  `json:"group"`
	Score    float64 `json:"score"`
	ImageURL string  `json:"image_url"`
}

// DishResponse is the metadata record of the best match's group.
type DishResponse struct {
	DishID      string   `json:"dish_id"`
	Name        string   `json:"name"`
	Intro       string   `json:"intro"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// SpaceSearchResponse is the result set of one embedding space.
type SpaceSearchResponse struct {
	Space           string         `json:"space"`
	Matched         bool           `json:"matched"`
	Metric          string         `json:"metric"`
	Threshold       float64        `json:"threshold"`
	BestScore       float64        `json:"best_score"`
	Message         string         `json:"message,omitempty"`
	Best            *MatchItem     `json:"best,omitempty"`
	SameGroup       []MatchItem    `json:"same_group"`
	Related         []MatchItem    `json:"related"`
	DegenerateQuery bool           `json:"degenerate_query,omitempty"`
	Error           *ErrorResponse `json:"error,omitempty"`
}

// SearchResponse is returned by POST /search and POST /search/vector.
type SearchResponse struct {
	SpaceSearchResponse
	Dish *DishResponse `json:"dish,omitempty"`
}

// FusedSearchResponse is returned by POST /search/fused.
type FusedSearchResponse struct {
	Spaces []SpaceSearchResponse `json:"spaces"`
	Dish   *DishResponse         `json:"dish,omitempty"`
}

// VectorSearchRequest is the body of POST /search/vector.
type VectorSearchRequest struct {
	Space     string    `json:"space,omitempty"`
	Vector    []float32 `json:"vector"`
	K         *int      `json:"k,omitempty"`
	Metric    *string   `json:"metric,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// SpaceInfo describes one loaded embedding space.
type SpaceInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions"`
	Rows       int    `json:"rows"`
	Groups     int    `json:"groups"`
	Degenerate int    `json:"degenerate_vectors"`
}

// CatalogResponse is returned by GET /catalog and POST /admin/reload.
type CatalogResponse struct {
	Rows     int         `json:"rows"`
	LoadedAt time.Time   `json:"loaded_at"`
	Spaces   []SpaceInfo `json:"spaces"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func matchToAPI(r *result.Result) MatchItem {
	return MatchItem{
		ID:       r.ID(),
		Group:    r.Group(),
		Score:    r.Score(),
		ImageURL: datasetPrefix + r.ID(),
	}
}

func matchesToAPI(rs []result.Result) []MatchItem {
	out := make([]MatchItem, len(rs))
	for i := range rs {
		out[i] = matchToAPI(&rs[i])
	}
	return out
}

func setToAPI(space string, set *result.Set) SpaceSearchResponse {
	resp := SpaceSearchResponse{
		Space:     space,
		Matched:   set.Matched(),
		Metric:    string(set.Metric()),
		Threshold: set.Threshold(),
		BestScore: set.BestScore(),
		SameGroup: matchesToAPI(set.SameGroup()),
		Related:   matchesToAPI(set.Related()),
	}
	if set.Matched() {
		best := matchToAPI(set.Best())
		resp.Best = &best
	} else {
		resp.Message = set.Message()
	}
	return resp
}

func dishToAPI(d *domain.Dish) *DishResponse {
	if d == nil {
		return nil
	}
	return &DishResponse{
		DishID:      d.ID,
		Name:        d.Name,
		Intro:       d.Intro,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
	}
}
