package request

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/dishdex/internal/domain"
	"github.com/kailas-cloud/dishdex/internal/domain/search/metric"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New(0, "", 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.K() != DefaultK {
		t.Errorf("K() = %d, want %d", r.K(), DefaultK)
	}
	if r.Metric() != metric.Euclidean {
		t.Errorf("Metric() = %q, want euclidean (default)", r.Metric())
	}
	if r.Threshold() != 0.9 {
		t.Errorf("Threshold() = %f", r.Threshold())
	}
}

func TestDefault(t *testing.T) {
	r := Default()
	if r.K() != 100 || r.Metric() != metric.Euclidean || r.Threshold() != 0.9 {
		t.Errorf("unexpected default: k=%d metric=%s threshold=%f", r.K(), r.Metric(), r.Threshold())
	}
}

func TestNew_InvalidMetric(t *testing.T) {
	_, err := New(10, "manhattan", 0.5)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid metric") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_KClamping(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		wantK int
	}{
		{"negative", -1, DefaultK},
		{"zero", 0, DefaultK},
		{"normal", 5, 5},
		{"over max", MaxK + 1, MaxK},
		{"exactly max", MaxK, MaxK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.k, metric.Cosine, 0.5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.K() != tt.wantK {
				t.Errorf("K() = %d, want %d", r.K(), tt.wantK)
			}
		})
	}
}

func TestNew_ThresholdValidation(t *testing.T) {
	tests := []struct {
		name      string
		m         metric.Metric
		threshold float64
		wantErr   bool
	}{
		{"euclidean zero", metric.Euclidean, 0, false},
		{"euclidean large", metric.Euclidean, 2, false},
		{"euclidean negative", metric.Euclidean, -0.1, true},
		{"cosine lower bound", metric.Cosine, -1, false},
		{"cosine upper bound", metric.Cosine, 1, false},
		{"cosine above", metric.Cosine, 1.1, true},
		{"nan", metric.Euclidean, math.NaN(), true},
		{"inf", metric.Cosine, math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(10, tt.m, tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithK(t *testing.T) {
	r, _ := New(10, metric.Cosine, 0.3)
	r2, err := r.WithK(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r2.K() != 3 || r2.Metric() != metric.Cosine || r2.Threshold() != 0.3 {
		t.Errorf("unexpected copy: k=%d metric=%s threshold=%f", r2.K(), r2.Metric(), r2.Threshold())
	}
	if r.K() != 10 {
		t.Error("original must be unchanged")
	}
}
