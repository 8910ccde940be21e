package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/connector/postgres"
)

func init() {
	cmd := &cobra.Command{
		Use:   "patch-datasets",
		Short: "Point dataset metadata at the new vector store",
		Long: "Flips the stored backend tag from weaviate to milvus in the datasets " +
			"table, one row per migrated collection. Run after a verified migration. " +
			"Row-level failures are counted and reported, never fatal.",
		Run: runPatch,
	}
	RootCmd.AddCommand(cmd)
}

func runPatch(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	if err := cfg.ValidatePG(); err != nil {
		exitErr("validate PostgreSQL configuration", err)
	}
	closeLog := setupLogging(cfg)
	defer closeLog()

	ctx := cmd.Context()
	names := collections
	if len(names) == 0 {
		source, err := openSource(cfg)
		if err != nil {
			exitErr("open source", err)
		}
		names, err = resolveCollections(ctx, source)
		source.Close()
		if err != nil {
			exitErr("resolve collections", err)
		}
	}

	db, err := postgres.Connect(ctx, &postgres.Config{
		Host:     cfg.PGHost,
		Port:     cfg.PGPort,
		Database: cfg.PGDatabase,
		Username: cfg.PGUsername,
		Password: cfg.PGPassword,
	})
	if err != nil {
		exitErr("connect to PostgreSQL", err)
	}
	defer db.Close()

	stats, err := postgres.NewPatcher(db).PatchVectorStore(ctx, names)
	if err != nil {
		exitErr("patch datasets", err)
	}
	log.Printf("dataset patch done: %d updated, %d not found, %d skipped, %d failed",
		stats.Updated, stats.NotFound, stats.Skipped, stats.Failed)
}
