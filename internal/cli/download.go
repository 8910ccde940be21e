package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/migrate"
)

var downloadDir string

func init() {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Dump source collections to local JSON files",
		Long: "Extract-only mode: pages every selected collection out of the source " +
			"and writes one JSON file per collection. No target is touched.",
		Run: runDownload,
	}
	cmd.Flags().StringVar(&downloadDir, "output", "downloads", "Directory for the per-collection JSON dumps")
	RootCmd.AddCommand(cmd)
}

type downloadRecord struct {
	ID         string         `json:"id"`
	Vector     []float64      `json:"vector"`
	Properties map[string]any `json:"properties"`
}

func runDownload(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	closeLog := setupLogging(cfg)
	defer closeLog()

	source, err := openSource(cfg)
	if err != nil {
		exitErr("open source", err)
	}
	defer source.Close()

	ctx := cmd.Context()
	names, err := resolveCollections(ctx, source)
	if err != nil {
		exitErr("resolve collections", err)
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		exitErr("create output dir", err)
	}

	for _, name := range names {
		if ctx.Err() != nil {
			log.Printf("download interrupted: %v", ctx.Err())
			return
		}
		if err := downloadCollection(cmd, source, name, cfg.BatchSize); err != nil {
			log.Printf("download %s failed: %v", name, err)
			continue
		}
	}
}

func downloadCollection(cmd *cobra.Command, source endpoint.SourceStore, name string, batchSize int) error {
	ctx := cmd.Context()

	raw, err := source.GetSchema(ctx, name)
	if err != nil {
		return fmt.Errorf("read source schema: %w", err)
	}
	if err := writeJSONFile(filepath.Join(downloadDir, name+"_schema.json"), raw); err != nil {
		return err
	}

	paginator := migrate.NewPaginator(source, name, batchSize, limitFlag)

	records := []downloadRecord{}
	for !paginator.Done() {
		batch, err := paginator.Next(ctx)
		if err != nil {
			return err
		}
		for i := range batch {
			records = append(records, downloadRecord{
				ID:         batch[i].ID,
				Vector:     batch[i].Vector,
				Properties: batch[i].Properties,
			})
		}
	}

	path := filepath.Join(downloadDir, name+".json")
	if err := writeJSONFile(path, records); err != nil {
		return err
	}
	log.Printf("downloaded %s: %d records -> %s", name, len(records), path)
	return nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return nil
}
