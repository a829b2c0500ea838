// Package chi exposes the dish search HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
	domcat "github.com/kailas-cloud/dishdex/internal/domain/catalog"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
	"github.com/kailas-cloud/dishdex/internal/domain/search/request"
	"github.com/kailas-cloud/dishdex/internal/metrics"
	healthuc "github.com/kailas-cloud/dishdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/dishdex/internal/usecase/search"
)

const (
	datasetPrefix  = "/dataset/"
	imageFormField = "image"
	// maxImageBytes caps multipart uploads.
	maxImageBytes = 16 << 20
)

// Search modes used as the metrics label.
const (
	modeImage  = "image"
	modeFused  = "fused"
	modeVector = "vector"
)

// Searcher is the search use case consumed by the API.
type Searcher interface {
	Search(ctx context.Context, image []byte, req request.Request) (searchuc.Response, error)
	SearchFused(ctx context.Context, image []byte, req request.Request) (searchuc.FusedResponse, error)
	SearchVector(ctx context.Context, space string, vec []float32, req request.Request) (searchuc.Response, error)
}

// Catalog exposes the active snapshot and triggers reloads.
type Catalog interface {
	Current() *domcat.Snapshot
	Reload(ctx context.Context) (*domcat.Snapshot, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	catalog       Catalog
	health        *healthuc.Service
	defaults      request.Request
	datasetDir    string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaults fills k, metric and threshold
// when a request omits them. datasetDir may be empty to disable image serving.
func NewServer(
	search Searcher,
	catalog Catalog,
	health *healthuc.Service,
	defaults request.Request,
	datasetDir string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		catalog:    catalog,
		health:     health,
		defaults:   defaults,
		datasetDir: datasetDir,
		logger:     logger,
	}
	for _, m := range errorMappings {
		s.errorHandlers = append(s.errorHandlers, sentinelHandler(m.sentinel, m.status, m.code))
	}
	return s
}

// Routes mounts every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.SearchImage)
	r.Post("/search/fused", s.SearchFused)
	r.Post("/search/vector", s.SearchVector)
	r.Get("/catalog", s.GetCatalog)
	r.Post("/admin/reload", s.ReloadCatalog)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	if s.datasetDir != "" {
		r.Get(datasetPrefix+"*", s.datasetHandler().ServeHTTP)
	}
}

// SearchImage handles POST /search (multipart field "image").
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	image, ok := s.readImage(w, r)
	if !ok {
		return
	}
	req, err := s.requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, image, req)
	if err != nil {
		observeSearch(modeImage, "", metrics.OutcomeError, start)
		s.handleDomainError(w, err)
		return
	}

	observeSearch(modeImage, resp.Space, outcome(resp.Set.Matched()), start)
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, responseToAPI(&resp))
}

// SearchFused handles POST /search/fused.
func (s *Server) SearchFused(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	image, ok := s.readImage(w, r)
	if !ok {
		return
	}
	req, err := s.requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.SearchFused(ctx, image, req)
	if err != nil {
		observeSearch(modeFused, "", metrics.OutcomeError, start)
		s.handleDomainError(w, err)
		return
	}

	out := FusedSearchResponse{
		Spaces: make([]SpaceSearchResponse, len(resp.Spaces)),
		Dish:   dishToAPI(resp.Dish),
	}
	for i := range resp.Spaces {
		sr := &resp.Spaces[i]
		if sr.Err != nil {
			s.logger.Warn("fused search space failed", zap.String("space", sr.Space), zap.Error(sr.Err))
			code, _ := classify(sr.Err)
			out.Spaces[i] = SpaceSearchResponse{
				Space:     sr.Space,
				SameGroup: []MatchItem{},
				Related:   []MatchItem{},
				Error:     &ErrorResponse{Code: code, Message: safeDomainMessage(sr.Err)},
			}
			observeSearch(modeFused, sr.Space, metrics.OutcomeError, start)
			continue
		}
		out.Spaces[i] = setToAPI(sr.Space, &sr.Set)
		observeSearch(modeFused, sr.Space, outcome(sr.Set.Matched()), start)
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, out)
}

// SearchVector handles POST /search/vector.
func (s *Server) SearchVector(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body VectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Vector) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "vector is required")
		return
	}

	req, err := s.buildRequest(body.K, body.Metric, body.Threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.SearchVector(r.Context(), body.Space, body.Vector, req)
	if err != nil {
		observeSearch(modeVector, body.Space, metrics.OutcomeError, start)
		s.handleDomainError(w, err)
		return
	}

	observeSearch(modeVector, resp.Space, outcome(resp.Set.Matched()), start)
	writeJSON(w, http.StatusOK, responseToAPI(&resp))
}

// GetCatalog handles GET /catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	snap := s.catalog.Current()
	if snap == nil {
		s.handleDomainError(w, domain.ErrEmptyStore)
		return
	}
	writeJSON(w, http.StatusOK, catalogToAPI(snap))
}

// ReloadCatalog handles POST /admin/reload. A failed reload keeps the previous snapshot.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogToAPI(snap))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// datasetHandler serves catalog images. Directory listings are not exposed.
func (s *Server) datasetHandler() http.Handler {
	fs := http.StripPrefix(strings.TrimSuffix(datasetPrefix, "/"), http.FileServer(http.Dir(s.datasetDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, ErrorCodeNotFound, "not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// readImage extracts the uploaded file. It writes the 400 response itself on failure.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest,
				fmt.Sprintf("image exceeds %d bytes", maxImageBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "No image uploaded")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "No selected file")
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Failed to read image: "+err.Error())
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Uploaded image is empty")
		return nil, false
	}
	return data, true
}

// requestFromQuery reads optional k, metric and threshold from the query string.
func (s *Server) requestFromQuery(r *http.Request) (request.Request, error) {
	q := r.URL.Query()

	var k *int
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return request.Request{}, fmt.Errorf("k must be an integer: %q", v)
		}
		k = &n
	}
	var m *string
	if v := q.Get("metric"); v != "" {
		m = &v
	}
	var threshold *float64
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return request.Request{}, fmt.Errorf("threshold must be a number: %q", v)
		}
		threshold = &f
	}
	return s.buildRequest(k, m, threshold)
}

func (s *Server) buildRequest(k *int, m *string, threshold *float64) (request.Request, error) {
	kk := s.defaults.K()
	if k != nil {
		if *k <= 0 || *k > request.MaxK {
			return request.Request{}, fmt.Errorf("k must be between 1 and %d", request.MaxK)
		}
		kk = *k
	}
	mm := s.defaults.Metric()
	if m != nil {
		parsed, err := metric.Parse(*m)
		if err != nil {
			return request.Request{}, fmt.Errorf("parse metric: %w", err)
		}
		mm = parsed
	}
	th := s.defaults.Threshold()
	if threshold != nil {
		th = *threshold
	}

	req, err := request.New(kk, mm, th)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return req, nil
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func responseToAPI(resp *searchuc.Response) SearchResponse {
	out := SearchResponse{
		SpaceSearchResponse: setToAPI(resp.Space, &resp.Set),
		Dish:                dishToAPI(resp.Dish),
	}
	out.DegenerateQuery = resp.DegenerateQuery
	return out
}

func catalogToAPI(snap *domcat.Snapshot) CatalogResponse {
	spaces := snap.Spaces()
	out := CatalogResponse{
		Rows:     snap.Size(),
		LoadedAt: snap.LoadedAt().UTC(),
		Spaces:   make([]SpaceInfo, len(spaces)),
	}
	for i, sp := range spaces {
		out.Spaces[i] = SpaceInfo{
			Name:       sp.Name(),
			Model:      sp.Config.Model,
			Dimensions: sp.Store.Dim(),
			Rows:       sp.Store.Size(),
			Groups:     len(sp.Store.Groups()),
			Degenerate: len(sp.Degenerate),
		}
	}
	return out
}

func observeSearch(mode, space, outcome string, start time.Time) {
	metrics.SearchRequestsTotal.WithLabelValues(mode, space, outcome).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func outcome(matched bool) string {
	if matched {
		return metrics.OutcomeMatched
	}
	return metrics.OutcomeUnmatched
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.ExtractionUsage) {
	if usage == nil {
		return
	}
	if n := usage.Hits() + usage.Misses(); n > 0 {
		w.Header().Set("X-Extractor-Cache-Hits", strconv.Itoa(usage.Hits()))
		w.Header().Set("X-Extractor-Cache-Misses", strconv.Itoa(usage.Misses()))
	}
}
