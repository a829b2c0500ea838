// dishdex-eval measures self-retrieval quality of the configured embedding spaces.
// Every image is ranked against all others by cosine similarity and mAP@k is written
// to a CSV table, overall and per dish.
//
// Usage:
//
//	dishdex-eval --env local --ks 1,5,10,20 --group-ks 5,25 --output map_results.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/bootstrap"
	"github.com/kailas-cloud/dishdex/internal/config"
	logpkg "github.com/kailas-cloud/dishdex/internal/logger"
	"github.com/kailas-cloud/dishdex/internal/repository/report"
	"github.com/kailas-cloud/dishdex/internal/repository/snapshot"
	"github.com/kailas-cloud/dishdex/internal/usecase/evaluate"
)

type options struct {
	env     string
	ks      []int
	groupKs []int
	output  string
	workers int
	spaces  []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "dishdex-eval",
		Short: "Compute mAP@k for every embedding space",
		Long: `Loads the catalog snapshot, L2-normalizes each space and ranks every image
against all other images. Images whose dish has a single photo are skipped.
Cutoffs larger than the catalog are clamped.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			return run(ctx, opts, cmd.Flags().Changed)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	f.IntSliceVar(&opts.ks, "ks", nil, "overall cutoffs (default from evaluation.ks)")
	f.IntSliceVar(&opts.groupKs, "group-ks", nil, "per-dish cutoffs (default from evaluation.group_ks)")
	f.StringVarP(&opts.output, "output", "o", "", "CSV output path (default from evaluation.output)")
	f.IntVar(&opts.workers, "workers", 0, "concurrent queries (0 = evaluation.workers or GOMAXPROCS)")
	f.StringSliceVar(&opts.spaces, "space", nil, "evaluate only these spaces")
	return cmd
}

func run(ctx context.Context, opts *options, changed func(string) bool) error {
	cfg, err := config.Load(opts.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(opts.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	applyOverrides(&cfg, opts, changed)

	sections, err := evaluateSpaces(ctx, cfg, opts.spaces, logger)
	if err != nil {
		return err
	}
	if err := report.WriteFile(cfg.Evaluation.Output, sections...); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("Report written",
		zap.String("path", cfg.Evaluation.Output),
		zap.Int("spaces", len(sections)),
	)
	return nil
}

func applyOverrides(cfg *config.Config, opts *options, changed func(string) bool) {
	if changed("ks") {
		cfg.Evaluation.Ks = opts.ks
	}
	if changed("group-ks") {
		cfg.Evaluation.GroupKs = opts.groupKs
	}
	if changed("output") {
		cfg.Evaluation.Output = opts.output
	}
	if changed("workers") {
		cfg.Evaluation.Workers = opts.workers
	}
}

// evaluateSpaces loads the selected spaces and evaluates them one after another.
// Each space already fans out over the evaluator's workers.
func evaluateSpaces(
	ctx context.Context, cfg config.Config, only []string, logger *zap.Logger,
) ([]report.Section, error) {
	files := bootstrap.SpaceFiles(cfg, only...)
	if len(files) == 0 {
		return nil, fmt.Errorf("no configured space matches %v", only)
	}
	source, err := bootstrap.Source(cfg)
	if err != nil {
		return nil, err
	}
	spaces, err := snapshot.NewLoader(source, files, logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	ev := evaluate.New(evaluate.WithWorkers(cfg.Evaluation.Workers))
	sections := make([]report.Section, 0, len(spaces))
	for _, sp := range spaces {
		start := time.Now()
		if degenerate := sp.Store.Normalize(); len(degenerate) > 0 {
			logger.Warn("Degenerate embeddings left unnormalized",
				zap.String("space", sp.Name()),
				zap.Int("count", len(degenerate)),
			)
		}
		rep, err := ev.EvaluateStore(ctx, sp.Store, cfg.Evaluation.Ks, cfg.Evaluation.GroupKs)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", sp.Name(), err)
		}

		fields := []zap.Field{
			zap.String("space", sp.Name()),
			zap.Int("rows", sp.Store.Size()),
			zap.Int("queries", rep.Queries),
			zap.Int("skipped", rep.Skipped),
			zap.Duration("duration", time.Since(start)),
		}
		for _, k := range cfg.Evaluation.Ks {
			if v, ok := rep.Overall[k]; ok {
				fields = append(fields, zap.Float64(fmt.Sprintf("map@%d", k), v))
			}
		}
		logger.Info("Space evaluated", fields...)
		sections = append(sections, report.Section{Model: sp.Name(), Report: rep})
	}
	return sections, nil
}
