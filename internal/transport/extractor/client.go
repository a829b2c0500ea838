// Package extractor is the HTTP client of the image feature extraction model server.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/metrics"
)

const maxErrorBody = 4 << 10

// Client calls POST {base}/v1/embed/{space} with the raw image bytes and
// expects {"embedding": [...]} back.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// Config holds the model server settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates an extractor client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  cfg.Logger,
	}
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

// Extract implements domain.Extractor with transport-level metrics.
func (c *Client) Extract(ctx context.Context, space string, image []byte) ([]float32, error) {
	endpoint := c.baseURL + "/v1/embed/" + url.PathEscape(space)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()

	resp, err := c.http.Do(req)

	duration := time.Since(start)

	if err != nil {
		c.fail(space, "transport")
		return nil, fmt.Errorf("extractor request failed: %w: %w", domain.ErrExtractorError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.fail(space, "api_error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.fail(space, "decode")
		return nil, fmt.Errorf("decode extractor response: %w: %w", domain.ErrExtractorError, err)
	}
	if len(out.Embedding) == 0 {
		c.fail(space, "empty_response")
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrExtractorError)
	}

	metrics.ExtractorRequestsTotal.WithLabelValues(space, "success").Inc()
	metrics.ExtractorRequestDuration.WithLabelValues(space).Observe(duration.Seconds())

	return out.Embedding, nil
}

// HealthCheck verifies the model server answers GET {base}/health with 2xx.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("extractor health: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("extractor health: status %d: %w", resp.StatusCode, domain.ErrExtractorError)
	}
	return nil
}

func (c *Client) fail(space, errType string) {
	metrics.ExtractorRequestsTotal.WithLabelValues(space, "error").Inc()
	metrics.ExtractorErrorsTotal.WithLabelValues(space, errType).Inc()
}

// parseAPIError extracts a readable error from the response body.
// All errors wrap domain.ErrExtractorError for the 502 mapping.
func parseAPIError(status int, body []byte) error {
	if detail := extractDetail(body); detail != "" {
		return fmt.Errorf("extractor API error %d: %s: %w", status, detail, domain.ErrExtractorError)
	}
	return fmt.Errorf("extractor API error %d: %s: %w",
		status, strings.TrimSpace(string(body)), domain.ErrExtractorError)
}

// extractDetail reads the "detail" field of a FastAPI-style error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
