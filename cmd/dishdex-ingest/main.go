// dishdex-ingest builds the catalog: it embeds a dataset directory into one parquet
// snapshot per embedding space and seeds dish metadata into Redis/Valkey.
//
// Usage:
//
//	dishdex-ingest vectors --dataset ./dataset --workers 8
//	dishdex-ingest metadata seed --file ./data/metadata.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dishdex/internal/config"
)

var envName string

var rootCmd = &cobra.Command{
	Use:   "dishdex-ingest",
	Short: "Build dishdex catalog snapshots and metadata",
	Long: `Offline tooling for the dishdex catalog.

The vectors command walks a dataset laid out as <dish>/<image>, sends every image
to the feature extractor for each configured space and writes index-aligned
parquet snapshots to the catalog source (local directory or MinIO).

The metadata command loads dish records into Redis/Valkey for metadata.driver=redis.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	rootCmd.AddCommand(vectorsCmd, metadataCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
