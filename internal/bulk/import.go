package bulk

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// DefaultPollInterval is the wait between import job status checks.
const DefaultPollInterval = 10 * time.Second

// RunImport submits an import job over staged files and polls it until a
// terminal state. A Failed job surfaces as a coded error carrying the
// target's reason.
func RunImport(ctx context.Context, target endpoint.BulkTarget, collection string, files []string, interval time.Duration) (*endpoint.ImportStatus, error) {
	if len(files) == 0 {
		return nil, endpoint.WrapError(endpoint.CodeImportFailed, false,
			fmt.Errorf("no staged files for %s", collection))
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	jobID, err := target.StartImport(ctx, collection, files)
	if err != nil {
		return nil, err
	}
	log.Printf("import job %s submitted for %s (%d files)", jobID, collection, len(files))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := target.ImportProgress(ctx, jobID)
		if err != nil {
			return nil, err
		}

		if status.Terminal() {
			if status.State == endpoint.ImportStateFailed {
				return status, endpoint.WrapError(endpoint.CodeImportFailed, false,
					fmt.Errorf("import job %s failed: %s", jobID, status.Reason))
			}
			log.Printf("import job %s completed: %d rows", jobID, status.ImportedRows)
			return status, nil
		}

		log.Printf("import job %s %s (%d%%)", jobID, status.State, status.Progress)
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
