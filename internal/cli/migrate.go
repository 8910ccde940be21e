package cli

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/config"
	"github.com/nucleus/vector-migrate/internal/migrate"
	"github.com/nucleus/vector-migrate/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the batch migration",
		Long: "Copies each collection batch by batch: paginate the source, provision " +
			"the target collection on the first batch, transform, insert, verify counts. " +
			"Collection failures are recorded in the report; the run continues.",
		Run: runMigrate,
	}
	RootCmd.AddCommand(cmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		exitErr("validate configuration", err)
	}
	closeLog := setupLogging(cfg)
	defer closeLog()

	source, err := openSource(cfg)
	if err != nil {
		exitErr("open source", err)
	}
	defer source.Close()

	target, err := openTarget(cfg)
	if err != nil {
		exitErr("open target", err)
	}
	defer target.Close()

	ctx := cmd.Context()
	names, err := resolveCollections(ctx, source)
	if err != nil {
		exitErr("resolve collections", err)
	}
	if len(names) == 0 {
		log.Print("no collections to migrate")
		return
	}

	driver := migrate.NewDriver(source, target, driverOptions(cfg))
	stats := driver.Run(ctx, names)

	paths, err := report.WriteAll(cfg.ReportsDir, stats)
	if err != nil {
		log.Printf("report generation failed: %v", err)
	} else {
		log.Printf("reports written: %s", paths.Summary)
	}

	counts := stats.CountByStatus()
	log.Printf("run %s done: %d documents, %d success, %d skipped, %d failed",
		stats.RunID, stats.TotalMigrated(),
		counts[migrate.StatusSuccess], counts[migrate.StatusSkipped], counts[migrate.StatusFailed])
}

func driverOptions(cfg *config.Config) migrate.Options {
	return migrate.Options{
		BatchSize: cfg.BatchSize,
		Limit:     limitFlag,
		Index: migrate.IndexConfig{
			IndexType:      cfg.IndexType,
			MetricType:     cfg.MetricType,
			M:              cfg.IndexM,
			EfConstruction: cfg.EfConstruction,
			EnableSparse:   cfg.EnableSparse,
		},
		Retry: migrate.RetryConfig{
			Attempts: cfg.MaxRetries,
			Delay:    time.Duration(cfg.RetryDelay * float64(time.Second)),
			Backoff:  cfg.Backoff,
		},
	}
}
