// Package migrate contains the serial batch migration pipeline: cursor
// pagination, collection provisioning, the per-collection driver loop, and
// post-migration verification.
package migrate

import (
	"time"

	"github.com/google/uuid"
)

// Terminal and intermediate collection states. Status is set exactly once
// at terminal transition and never reopened.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// ExpectedUnknown marks a collection whose source count could not be read.
const ExpectedUnknown int64 = -1

// CollectionState tracks one collection through the pipeline.
type CollectionState struct {
	Name       string `json:"name"`
	TargetName string `json:"target_name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`

	Dimension     int   `json:"dimension"`
	ExpectedCount int64 `json:"expected_count"`
	Migrated      int64 `json:"migrated"`
	Dropped       int64 `json:"dropped"`
	Batches       int   `json:"batches"`
	FailedBatches int   `json:"failed_batches"`

	SourceCount   int64 `json:"source_count"`
	TargetCount   int64 `json:"target_count"`
	CountVerified bool  `json:"count_verified"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Finish records the terminal status once. Later calls are ignored.
func (s *CollectionState) Finish(status string, err error) {
	if s.Status == StatusSuccess || s.Status == StatusFailed || s.Status == StatusSkipped {
		return
	}
	s.Status = status
	if err != nil {
		s.Error = err.Error()
	}
	s.FinishedAt = time.Now()
}

// Duration reports the wall time spent on the collection.
func (s *CollectionState) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunStatistics accumulates collection outcomes across a run. The pipeline
// is single threaded, so plain field updates are safe.
type RunStatistics struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Collections []*CollectionState `json:"collections"`

	BatchSize int   `json:"batch_size"`
	Limit     int64 `json:"limit,omitempty"`
}

// NewRunStatistics starts tracking a run.
func NewRunStatistics(batchSize int, limit int64) *RunStatistics {
	return &RunStatistics{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		BatchSize: batchSize,
		Limit:     limit,
	}
}

// Track registers a collection state with the run.
func (r *RunStatistics) Track(state *CollectionState) {
	r.Collections = append(r.Collections, state)
}

// Finalize stamps the run end time.
func (r *RunStatistics) Finalize() {
	r.FinishedAt = time.Now()
}

// TotalMigrated sums migrated documents across collections.
func (r *RunStatistics) TotalMigrated() int64 {
	var total int64
	for _, c := range r.Collections {
		total += c.Migrated
	}
	return total
}

// CountByStatus tallies collections per terminal status.
func (r *RunStatistics) CountByStatus() map[string]int {
	counts := make(map[string]int)
	for _, c := range r.Collections {
		counts[c.Status]++
	}
	return counts
}
