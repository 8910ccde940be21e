package migrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
	"github.com/nucleus/vector-migrate/internal/transform"
)

// Options configures a migration run.
type Options struct {
	BatchSize int
	Limit     int64 // 0 means migrate everything
	Index     IndexConfig
	Retry     RetryConfig
}

// Driver sequences the pipeline per collection: paginate, provision on the
// first batch, transform, insert, verify. Strictly serial; the cursor
// always reflects the batch most recently committed to the target.
type Driver struct {
	source      endpoint.SourceStore
	target      endpoint.TargetStore
	transformer *transform.Transformer
	provisioner *Provisioner
	opts        Options
}

// NewDriver wires a driver over open source and target stores.
func NewDriver(source endpoint.SourceStore, target endpoint.TargetStore, opts Options) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 300
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = DefaultRetry
	}
	t := transform.New()
	t.IncludeSparse = opts.Index.EnableSparse
	return &Driver{
		source:      source,
		target:      target,
		transformer: t,
		provisioner: NewProvisioner(target, opts.Index),
		opts:        opts,
	}
}

// Run migrates the named collections one after another. Collection-level
// failures are recorded and the run continues with the next collection.
func (d *Driver) Run(ctx context.Context, collections []string) *RunStatistics {
	stats := NewRunStatistics(d.opts.BatchSize, d.opts.Limit)

	for _, name := range collections {
		if ctx.Err() != nil {
			log.Printf("run interrupted before collection %s", name)
			break
		}
		state := d.MigrateCollection(ctx, name)
		stats.Track(state)
	}

	stats.Finalize()
	return stats
}

// MigrateCollection runs the per-collection state machine:
// NotStarted -> Skipped, or NotStarted -> InProgress -> {Success, Failed}.
func (d *Driver) MigrateCollection(ctx context.Context, name string) *CollectionState {
	state := &CollectionState{
		Name:          name,
		TargetName:    SanitizeCollectionName(name),
		Status:        StatusNotStarted,
		ExpectedCount: ExpectedUnknown,
		StartedAt:     time.Now(),
	}

	exists, err := d.target.HasCollection(ctx, state.TargetName)
	if err != nil {
		state.Finish(StatusFailed, fmt.Errorf("check target collection: %w", err))
		return state
	}
	if exists {
		log.Printf("collection %s already exists in target, skipping", state.TargetName)
		state.Finish(StatusSkipped, nil)
		return state
	}

	rawSchema, err := d.source.GetSchema(ctx, name)
	if err != nil {
		state.Finish(StatusFailed, fmt.Errorf("read source schema: %w", err))
		return state
	}
	desc := schema.Analyze(rawSchema)

	state.Status = StatusInProgress
	paginator := NewPaginator(d.source, name, d.opts.BatchSize, d.opts.Limit)
	state.ExpectedCount = paginator.Total(ctx)

	if err := d.migrateBatches(ctx, paginator, desc, state); err != nil {
		state.Finish(StatusFailed, err)
		return state
	}
	if state.Status == StatusSkipped {
		return state
	}

	if state.Migrated == 0 {
		log.Printf("warning: collection %s finished with zero migrated documents", name)
	}
	state.Finish(StatusSuccess, nil)
	Verify(ctx, d.source, d.target, state)
	return state
}

// migrateBatches drains the paginator. The first non-empty batch decides
// the vector dimension and provisions the target collection.
func (d *Driver) migrateBatches(ctx context.Context, paginator *Paginator, desc *schema.Descriptor, state *CollectionState) error {
	provisioned := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := paginator.Next(ctx)
		if err != nil {
			return fmt.Errorf("fetch page after %q: %w", paginator.Cursor(), err)
		}
		if len(records) == 0 {
			return nil
		}

		if !provisioned {
			dimension := len(records[0].Vector)
			state.Dimension = dimension
			result, err := d.provisioner.Ensure(ctx, state.TargetName, dimension, desc)
			if err != nil {
				return err
			}
			if result == AlreadyExists {
				log.Printf("collection %s appeared in target mid-run, skipping remainder", state.TargetName)
				state.Finish(StatusSkipped, nil)
				return nil
			}
			provisioned = true
		}

		rows := d.transformer.TransformBatch(records, desc)
		valid, problems := d.transformer.ValidateBatch(rows)
		state.Dropped += int64(len(records) - len(valid))
		for _, problem := range problems {
			log.Printf("validation: %s", problem)
		}

		state.Batches++
		if len(valid) == 0 {
			log.Printf("batch %d of %s had no valid records", state.Batches, state.Name)
			continue
		}

		var inserted int64
		insertErr := WithRetry(ctx, d.opts.Retry, fmt.Sprintf("insert batch %d of %s", state.Batches, state.Name), func() error {
			n, err := d.target.Insert(ctx, state.TargetName, valid)
			if err != nil {
				return err
			}
			inserted = n
			return nil
		})
		if insertErr != nil {
			if endpoint.IsFatal(insertErr) {
				return fmt.Errorf("batch %d: %w", state.Batches, insertErr)
			}
			state.FailedBatches++
			log.Printf("batch %d of %s failed (%v), continuing with next batch", state.Batches, state.Name, insertErr)
			continue
		}

		state.Migrated += inserted
		if state.ExpectedCount > 0 {
			log.Printf("%s: %d/%d migrated", state.Name, state.Migrated, state.ExpectedCount)
		} else {
			log.Printf("%s: %d migrated", state.Name, state.Migrated)
		}

		if paginator.Done() {
			return nil
		}
	}
}
