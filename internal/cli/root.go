// Package cli implements the vector-migrate commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/config"
	"github.com/nucleus/vector-migrate/internal/endpoint"

	// Register the connectors.
	_ "github.com/nucleus/vector-migrate/internal/connector/milvus"
	_ "github.com/nucleus/vector-migrate/internal/connector/weaviate"
)

var (
	manifestPath string
	collections  []string
	limitFlag    int64
	batchFlag    int
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "vector-migrate",
	Short: "Copy vector collections from Weaviate into Zilliz Cloud",
	Long: "A one-off batch migration tool. It copies vector collections from a " +
		"Weaviate instance into Zilliz Cloud (managed Milvus), with an optional " +
		"bulk-import path through object storage and a PostgreSQL metadata patch step.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&manifestPath, "config", "", "Path to a YAML run manifest")
	RootCmd.PersistentFlags().StringSliceVar(&collections, "collections", nil, "Collections to process (default: all source collections)")
	RootCmd.PersistentFlags().Int64Var(&limitFlag, "limit", 0, "Cap on documents migrated per collection (0 = no cap)")
	RootCmd.PersistentFlags().IntVar(&batchFlag, "batch-size", 0, "Documents per batch (overrides env and manifest)")
}

// Execute runs the CLI against the given signal-aware context.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the layered configuration: environment, then the YAML
// manifest, then CLI flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()

	if manifestPath != "" {
		manifest, err := config.LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		manifest.Apply(cfg)
		if len(collections) == 0 {
			collections = manifest.Collections
		}
		if limitFlag == 0 {
			limitFlag = manifest.Limit
		}
	}
	if batchFlag > 0 {
		cfg.BatchSize = batchFlag
	}
	return cfg, nil
}

// setupLogging tees log output to a timestamped file under the logs
// directory in addition to stderr. A failure to open the file is reported
// but never blocks the run.
func setupLogging(cfg *config.Config) func() {
	if cfg.LogsDir == "" {
		return func() {}
	}
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		log.Printf("cannot create logs dir %s: %v", cfg.LogsDir, err)
		return func() {}
	}
	path := filepath.Join(cfg.LogsDir, fmt.Sprintf("migration_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		log.Printf("cannot create log file %s: %v", path, err)
		return func() {}
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}
}

func openSource(cfg *config.Config) (endpoint.SourceStore, error) {
	return endpoint.DefaultRegistry().CreateSource("vector.weaviate", map[string]any{
		"endpoint": cfg.WeaviateEndpoint,
		"apiKey":   cfg.WeaviateAPIKey,
	})
}

func openTarget(cfg *config.Config) (endpoint.TargetStore, error) {
	return endpoint.DefaultRegistry().CreateTarget("vector.milvus", map[string]any{
		"uri":      cfg.ZillizURI,
		"token":    cfg.ZillizToken,
		"database": cfg.ZillizDatabase,
	})
}

// resolveCollections returns the collections named on the command line or
// in the manifest, falling back to everything the source has.
func resolveCollections(ctx context.Context, source endpoint.SourceStore) ([]string, error) {
	if len(collections) > 0 {
		return collections, nil
	}
	names, err := source.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source collections: %w", err)
	}
	return names, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
