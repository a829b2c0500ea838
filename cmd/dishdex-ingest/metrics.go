package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ingestMetrics tracks ingest progress on a private registry.
type ingestMetrics struct {
	imagesTotal     prometheus.Gauge
	imagesProcessed prometheus.Counter
	imagesFailed    prometheus.Counter

	snapshotRows  *prometheus.GaugeVec
	snapshotBytes *prometheus.GaugeVec
}

func newIngestMetrics(reg prometheus.Registerer) *ingestMetrics {
	m := &ingestMetrics{
		imagesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dishdex_ingest",
			Name:      "images_total",
			Help:      "Images found in the dataset",
		}),

		imagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dishdex_ingest",
			Name:      "images_processed_total",
			Help:      "Images embedded in every space",
		}),

		imagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dishdex_ingest",
			Name:      "images_failed_total",
			Help:      "Images skipped because an extraction failed",
		}),

		snapshotRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dishdex_ingest",
			Name:      "snapshot_rows",
			Help:      "Rows written to the space snapshot",
		}, []string{"space"}),

		snapshotBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dishdex_ingest",
			Name:      "snapshot_bytes",
			Help:      "Encoded size of the space snapshot",
		}, []string{"space"}),
	}

	reg.MustRegister(
		m.imagesTotal, m.imagesProcessed, m.imagesFailed,
		m.snapshotRows, m.snapshotBytes,
	)

	return m
}

// serveMetrics exposes the ingest registry together with the default one
// (extractor client metrics) for Prometheus scrape.
func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	return srv
}
