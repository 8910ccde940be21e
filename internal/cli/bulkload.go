package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/bulk"
	"github.com/nucleus/vector-migrate/internal/config"
	"github.com/nucleus/vector-migrate/internal/connector/objectstore"
	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/migrate"
	"github.com/nucleus/vector-migrate/internal/report"
	"github.com/nucleus/vector-migrate/internal/schema"
	"github.com/nucleus/vector-migrate/internal/transform"
)

var pollInterval time.Duration

func init() {
	cmd := &cobra.Command{
		Use:   "bulkload",
		Short: "Migrate via object storage and server-side import jobs",
		Long: "Stages transformed rows as part files in object storage, then submits " +
			"an import job per collection and polls it to completion. Suited to " +
			"collections too large for the row-by-row insert path.",
		Run: runBulkload,
	}
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", bulk.DefaultPollInterval, "Wait between import job status checks")
	RootCmd.AddCommand(cmd)
}

func runBulkload(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		exitErr("validate configuration", err)
	}
	if err := cfg.ValidateBulk(); err != nil {
		exitErr("validate bulk configuration", err)
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

	bulkTarget, ok := target.(endpoint.BulkTarget)
	if !ok {
		exitErr("bulk import", fmt.Errorf("target does not support import jobs"))
	}

	store, err := openObjectStore(cfg)
	if err != nil {
		exitErr("open object storage", err)
	}

	ctx := cmd.Context()
	if err := store.EnsureBucket(ctx, cfg.BulkBucket); err != nil {
		exitErr("ensure staging bucket", err)
	}

	names, err := resolveCollections(ctx, source)
	if err != nil {
		exitErr("resolve collections", err)
	}

	loader := &bulkLoader{
		source:      source,
		target:      target,
		bulkTarget:  bulkTarget,
		store:       store,
		cfg:         cfg,
		transformer: newTransformer(cfg),
		provisioner: migrate.NewProvisioner(target, driverOptions(cfg).Index),
	}

	stats := migrate.NewRunStatistics(cfg.BatchSize, limitFlag)
	for _, name := range names {
		if ctx.Err() != nil {
			log.Printf("bulk load interrupted: %v", ctx.Err())
			break
		}
		stats.Track(loader.loadCollection(ctx, name))
	}
	stats.Finalize()

	if paths, err := report.WriteAll(cfg.ReportsDir, stats); err != nil {
		log.Printf("report generation failed: %v", err)
	} else {
		log.Printf("reports written: %s", paths.Summary)
	}
}

func openObjectStore(cfg *config.Config) (objectstore.Store, error) {
	return objectstore.New(objectstore.ParseConfig(map[string]any{
		"endpointUrl":     cfg.BulkEndpointURL,
		"accessKeyId":     cfg.BulkAccessKey,
		"secretAccessKey": cfg.BulkSecretKey,
		"bucket":          cfg.BulkBucket,
		"basePrefix":      cfg.BulkRemotePath,
	}))
}

func newTransformer(cfg *config.Config) *transform.Transformer {
	t := transform.New()
	t.IncludeSparse = cfg.EnableSparse
	return t
}

// bulkLoader stages one collection at a time: provision, transform, write
// part files, submit the import job, poll, verify.
type bulkLoader struct {
	source      endpoint.SourceStore
	target      endpoint.TargetStore
	bulkTarget  endpoint.BulkTarget
	store       objectstore.Store
	cfg         *config.Config
	transformer *transform.Transformer
	provisioner *migrate.Provisioner
}

func (l *bulkLoader) loadCollection(ctx context.Context, name string) *migrate.CollectionState {
	state := &migrate.CollectionState{
		Name:          name,
		TargetName:    migrate.SanitizeCollectionName(name),
		Status:        migrate.StatusInProgress,
		ExpectedCount: migrate.ExpectedUnknown,
		StartedAt:     time.Now(),
	}
	log.Printf("bulk loading %s -> %s", name, state.TargetName)

	raw, err := l.source.GetSchema(ctx, name)
	if err != nil {
		state.Finish(migrate.StatusFailed, fmt.Errorf("read source schema: %w", err))
		return state
	}
	desc := schema.Analyze(raw)

	paginator := migrate.NewPaginator(l.source, name, l.cfg.BatchSize, limitFlag)
	state.ExpectedCount = paginator.Total(ctx)

	var writer *bulk.Writer
	for !paginator.Done() {
		records, err := paginator.Next(ctx)
		if err != nil {
			state.Finish(migrate.StatusFailed, fmt.Errorf("fetch page: %w", err))
			return state
		}
		if len(records) == 0 {
			continue
		}

		if writer == nil {
			state.Dimension = len(records[0].Vector)
			result, err := l.provisioner.Ensure(ctx, state.TargetName, state.Dimension, desc)
			if err != nil {
				state.Finish(migrate.StatusFailed, err)
				return state
			}
			if result == migrate.AlreadyExists {
				log.Printf("collection %s already exists in target, skipping", state.TargetName)
				state.Finish(migrate.StatusSkipped, nil)
				return state
			}
			writer = bulk.NewWriter(l.store, bulk.WriterConfig{
				Bucket:      l.cfg.BulkBucket,
				Prefix:      l.cfg.BulkRemotePath,
				SegmentSize: l.cfg.BulkSegmentSize,
				FileType:    l.cfg.BulkFileType,
				Fields:      l.provisioner.FieldSet(state.Dimension, desc),
			}, state.TargetName)
		}

		rows := l.transformer.TransformBatch(records, desc)
		valid, problems := l.transformer.ValidateBatch(rows)
		state.Dropped += int64(len(records) - len(valid))
		for _, p := range problems {
			log.Printf("dropped record in %s: %s", name, p)
		}
		if len(valid) == 0 {
			continue
		}
		if err := writer.Append(ctx, valid); err != nil {
			state.Finish(migrate.StatusFailed, fmt.Errorf("stage batch: %w", err))
			return state
		}
		state.Batches++
	}

	if writer == nil {
		log.Printf("warning: collection %s produced no records", name)
		state.Finish(migrate.StatusSuccess, nil)
		return state
	}

	parts, staged, err := writer.Commit(ctx)
	if err != nil {
		state.Finish(migrate.StatusFailed, fmt.Errorf("commit staged parts: %w", err))
		return state
	}

	status, err := bulk.RunImport(ctx, l.bulkTarget, state.TargetName, parts, pollInterval)
	if err != nil {
		state.Finish(migrate.StatusFailed, err)
		return state
	}
	state.Migrated = status.ImportedRows
	if state.Migrated == 0 {
		state.Migrated = staged
	}
	state.Finish(migrate.StatusSuccess, nil)
	migrate.Verify(ctx, l.source, l.target, state)
	return state
}
