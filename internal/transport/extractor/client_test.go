package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterExtractorMetrics()
	os.Exit(m.Run())
}

func newClient(url string) *Client {
	return NewClient(&Config{BaseURL: url + "/", APIKey: "test-key", Logger: zap.NewNop()})
}

func TestClient_Extract(t *testing.T) {
	image := []byte("\xff\xd8\xff\xe0fake-jpeg")
	expectedVec := []float32{0.1, 0.2, 0.3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/embed/cnn" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Equal(body, image) {
			t.Errorf("image bytes not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"embedding": expectedVec, "model": "EfficientNetB0"})
	}))
	defer server.Close()

	before := testutil.ToFloat64(metrics.ExtractorRequestsTotal.WithLabelValues("cnn", "success"))

	vec, err := newClient(server.URL).Extract(context.Background(), "cnn", image)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("unexpected vector: %v", vec)
	}
	after := testutil.ToFloat64(metrics.ExtractorRequestsTotal.WithLabelValues("cnn", "success"))
	if after-before != 1 {
		t.Errorf("expected success counter +1, got %f", after-before)
	}
}

func TestClient_Extract_APIErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"cannot decode image"}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Extract(context.Background(), "vit", []byte("x"))
	if !errors.Is(err, domain.ErrExtractorError) {
		t.Fatalf("expected ErrExtractorError, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot decode image") || !strings.Contains(err.Error(), "422") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestClient_Extract_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Extract(context.Background(), "cnn", []byte("x"))
	if !errors.Is(err, domain.ErrExtractorError) {
		t.Fatalf("expected ErrExtractorError, got %v", err)
	}
}

func TestClient_Extract_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newClient(url).Extract(context.Background(), "cnn", []byte("x"))
	if !errors.Is(err, domain.ErrExtractorError) {
		t.Fatalf("expected ErrExtractorError, got %v", err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	c := newClient(server.URL)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status.Store(http.StatusServiceUnavailable)
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"boom"}`)); got != "boom" {
		t.Errorf("got %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("got %q", got)
	}
}
