package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/bootstrap"
	"github.com/kailas-cloud/dishdex/internal/config"
	"github.com/kailas-cloud/dishdex/internal/db"
	"github.com/kailas-cloud/dishdex/internal/domain"
	logpkg "github.com/kailas-cloud/dishdex/internal/logger"
	"github.com/kailas-cloud/dishdex/internal/metrics"
	"github.com/kailas-cloud/dishdex/internal/repository/snapshot"
	"github.com/kailas-cloud/dishdex/internal/usecase/ingest"
)

var vectorsOpts struct {
	dataset     string
	workers     int
	limit       int
	metricsPort string
}

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Embed the dataset and write one snapshot per space",
	Long: `Embeds every image under --dataset with each configured space.
An image is written only when all spaces succeeded, so the snapshots stay
index-aligned. Existing snapshots are replaced.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer cancel()
		return runVectors(ctx)
	},
}

func init() {
	f := vectorsCmd.Flags()
	f.StringVar(&vectorsOpts.dataset, "dataset", "", "dataset root (default catalog.dataset_dir)")
	f.IntVar(&vectorsOpts.workers, "workers", 8, "parallel extractor calls")
	f.IntVar(&vectorsOpts.limit, "limit", 0, "max images to embed (0 = all)")
	f.StringVar(&vectorsOpts.metricsPort, "metrics-port", "", "serve Prometheus metrics on this port")
}

func runVectors(ctx context.Context) error {
	start := time.Now()

	cfg, err := config.Load(envName)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Extractor.BaseURL == "" {
		return fmt.Errorf("extractor.base_url is required")
	}
	dataset := vectorsOpts.dataset
	if dataset == "" {
		dataset = cfg.Catalog.DatasetDir
	}
	if dataset == "" {
		return fmt.Errorf("--dataset or catalog.dataset_dir is required")
	}

	reg := prometheus.NewRegistry()
	m := newIngestMetrics(reg)
	if vectorsOpts.metricsPort != "" {
		metrics.RegisterExtractorMetrics()
		srv := serveMetrics(vectorsOpts.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	// The embedding cache makes re-runs cheap when it is enabled.
	var store db.Store
	if cfg.Cache.Enabled {
		store, err = bootstrap.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	extractor := bootstrap.Extractor(cfg, store, logger)
	if err := extractor.HealthCheck(ctx); err != nil {
		return fmt.Errorf("extractor unavailable: %w", err)
	}

	source, err := bootstrap.Source(cfg)
	if err != nil {
		return err
	}

	files, err := ingest.Walk(dataset)
	if err != nil {
		return err
	}
	if vectorsOpts.limit > 0 && len(files) > vectorsOpts.limit {
		files = files[:vectorsOpts.limit]
	}
	m.imagesTotal.Set(float64(len(files)))
	logger.Info("Dataset scanned", zap.String("dataset", dataset), zap.Int("images", len(files)))

	res, err := embedDataset(ctx, extractor, cfg.DomainSpaces(), dataset, files, m, logger)
	if err != nil {
		return err
	}
	if len(res.Paths) == 0 {
		return fmt.Errorf("no image was embedded in every space (%d failed)", res.Failed)
	}

	if err := writeSnapshots(ctx, source, bootstrap.SpaceFiles(cfg), res, m, logger); err != nil {
		return err
	}

	logger.Info("Ingest complete",
		zap.Int("rows", len(res.Paths)),
		zap.Int("failed", res.Failed),
		zap.Duration("embed_duration", res.Duration),
		zap.Duration("total_duration", time.Since(start)),
	)
	return nil
}

// embedDataset runs the worker pool and logs progress every 100 images.
func embedDataset(
	ctx context.Context,
	extractor domain.Extractor,
	spaces []domain.SpaceConfig,
	root string,
	files []string,
	m *ingestMetrics,
	logger *zap.Logger,
) (ingest.Result, error) {
	var done atomic.Int64
	in := ingest.New(extractor, spaces, vectorsOpts.workers, logger).WithProgress(func(_ string, err error) {
		if err != nil {
			m.imagesFailed.Inc()
		} else {
			m.imagesProcessed.Inc()
		}
		if n := done.Add(1); n%100 == 0 {
			logger.Info("Progress", zap.Int64("done", n), zap.Int("total", len(files)))
		}
	})
	return in.Run(ctx, root, files)
}

// writeSnapshots encodes and uploads one parquet object per space.
func writeSnapshots(
	ctx context.Context,
	source snapshot.Source,
	files []snapshot.SpaceFile,
	res ingest.Result,
	m *ingestMetrics,
	logger *zap.Logger,
) error {
	for _, sf := range files {
		vectors := res.Vectors[sf.Config.Name]
		rows := make([]snapshot.Row, len(res.Paths))
		for i, p := range res.Paths {
			rows[i] = snapshot.Row{Path: p, Vector: vectors[i]}
		}
		data, err := snapshot.EncodeBytes(rows)
		if err != nil {
			return fmt.Errorf("encode %s: %w", sf.Name, err)
		}
		if err := source.Put(ctx, sf.Name, data); err != nil {
			return fmt.Errorf("write %s: %w", sf.Name, err)
		}
		m.snapshotRows.WithLabelValues(sf.Config.Name).Set(float64(len(rows)))
		m.snapshotBytes.WithLabelValues(sf.Config.Name).Set(float64(len(data)))
		logger.Info("Snapshot written",
			zap.String("space", sf.Config.Name),
			zap.String("object", sf.Name),
			zap.Int("rows", len(rows)),
			zap.Int("bytes", len(data)),
		)
	}
	return nil
}
