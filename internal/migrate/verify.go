package migrate

import (
	"context"
	"log"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// verifyCountLimit bounds the count-query fallback when collection
// statistics are unavailable or stale.
const verifyCountLimit = 1_000_000

// Verify compares source and target row counts after a collection's
// batches are exhausted. Count drift from validation-time drops is
// expected; a mismatch is logged as a warning, never an error.
func Verify(ctx context.Context, source endpoint.SourceStore, target endpoint.TargetStore, state *CollectionState) {
	sourceCount, err := source.Count(ctx, state.Name)
	if err != nil {
		log.Printf("verification: source count for %s unavailable: %v", state.Name, err)
		sourceCount = ExpectedUnknown
	}

	targetCount, err := target.RowCount(ctx, state.TargetName)
	if err != nil {
		log.Printf("verification: stats for %s unavailable, falling back to count query: %v", state.TargetName, err)
		targetCount, err = target.QueryCount(ctx, state.TargetName, verifyCountLimit)
		if err != nil {
			log.Printf("verification: count query for %s failed: %v", state.TargetName, err)
			targetCount = ExpectedUnknown
		}
	}

	state.SourceCount = sourceCount
	state.TargetCount = targetCount
	state.CountVerified = sourceCount >= 0 && targetCount >= 0 && sourceCount == targetCount

	switch {
	case sourceCount < 0 || targetCount < 0:
		log.Printf("verification: %s counts incomplete (source=%d target=%d)", state.Name, sourceCount, targetCount)
	case sourceCount == targetCount:
		log.Printf("verification: %s counts match (%d)", state.Name, sourceCount)
	default:
		log.Printf("warning: %s count mismatch: source=%d target=%d (non-fatal)", state.Name, sourceCount, targetCount)
	}
}
