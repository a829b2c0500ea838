package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dishdex/internal/bootstrap"
	"github.com/kailas-cloud/dishdex/internal/config"
	logpkg "github.com/kailas-cloud/dishdex/internal/logger"
	"github.com/kailas-cloud/dishdex/internal/repository/metadata"
)

var seedFile string

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Manage dish metadata",
}

var metadataSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a metadata JSON file into Redis/Valkey",
	Long: `Reads a JSON object keyed by dish group and stores one record per dish.
Existing records with the same key are overwritten.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envName)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		path := seedFile
		if path == "" {
			path = cfg.Metadata.Path
		}
		if len(cfg.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open metadata: %w", err)
		}
		dishes, err := metadata.Parse(f)
		_ = f.Close()
		if err != nil {
			return err
		}

		store, err := bootstrap.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := metadata.NewRedisLookup(store).Seed(cmd.Context(), dishes)
		if err != nil {
			return fmt.Errorf("seed metadata: %w", err)
		}
		logger.Info("Metadata seeded", zap.String("file", path), zap.Int("dishes", n))
		return nil
	},
}

func init() {
	metadataSeedCmd.Flags().StringVar(&seedFile, "file", "", "metadata JSON (default metadata.path)")
	metadataCmd.AddCommand(metadataSeedCmd)
}
