package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Collections carrying embedded documents follow the
// Vector_index_<dataset uuid with underscores>_Node convention. The uuid
// segment keys the datasets row to patch.
var collectionIDPattern = regexp.MustCompile(
	`^Vector_index_([0-9a-fA-F]{8}_[0-9a-fA-F]{4}_[0-9a-fA-F]{4}_[0-9a-fA-F]{4}_[0-9a-fA-F]{12})_Node$`)

// PatchOutcome describes what happened to one collection's dataset row.
type PatchOutcome struct {
	Collection string `json:"collection"`
	DatasetID  string `json:"dataset_id,omitempty"`
	Status     string `json:"status"` // updated | not_found | skipped | failed
	Detail     string `json:"detail,omitempty"`
}

// PatchStats aggregates a patch run.
type PatchStats struct {
	Processed int            `json:"processed"`
	Updated   int            `json:"updated"`
	NotFound  int            `json:"not_found"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Outcomes  []PatchOutcome `json:"outcomes"`
}

// Patcher flips the vector_store backend tag on datasets rows.
type Patcher struct {
	db DB
}

// NewPatcher wraps an open connection pool.
func NewPatcher(db DB) *Patcher {
	return &Patcher{db: db}
}

// PatchVectorStore updates the index_struct backend tag from weaviate to
// milvus for every collection that maps to a datasets row. Row failures are
// counted, never fatal; the run always visits every collection.
func (p *Patcher) PatchVectorStore(ctx context.Context, collections []string) (*PatchStats, error) {
	stats := &PatchStats{}

	for _, collection := range collections {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		outcome := p.patchOne(ctx, collection)
		stats.Outcomes = append(stats.Outcomes, outcome)
		switch outcome.Status {
		case "updated":
			stats.Updated++
			log.Printf("patched dataset %s (%s): vector_store weaviate -> milvus", outcome.DatasetID, collection)
		case "not_found":
			stats.NotFound++
			log.Printf("no dataset row for collection %s", collection)
		case "skipped":
			stats.Skipped++
		case "failed":
			stats.Failed++
			log.Printf("patch failed for collection %s: %s", collection, outcome.Detail)
		}
	}

	return stats, nil
}

func (p *Patcher) patchOne(ctx context.Context, collection string) PatchOutcome {
	outcome := PatchOutcome{Collection: collection}

	datasetID, ok := DatasetIDFromCollection(collection)
	if !ok {
		outcome.Status = "skipped"
		outcome.Detail = "collection name carries no dataset binding"
		return outcome
	}
	outcome.DatasetID = datasetID

	var rawStruct []byte
	err := p.db.QueryRow(ctx,
		`SELECT index_struct FROM datasets WHERE id = $1`, datasetID,
	).Scan(&rawStruct)
	if errors.Is(err, pgx.ErrNoRows) {
		outcome.Status = "not_found"
		return outcome
	}
	if err != nil {
		outcome.Status = "failed"
		outcome.Detail = err.Error()
		return outcome
	}

	patched, changed, err := flipBackendTag(rawStruct)
	if err != nil {
		outcome.Status = "failed"
		outcome.Detail = err.Error()
		return outcome
	}
	if !changed {
		outcome.Status = "skipped"
		outcome.Detail = "backend tag already milvus"
		return outcome
	}

	tag, err := p.db.Exec(ctx,
		`UPDATE datasets SET index_struct = $1, updated_at = now() WHERE id = $2`,
		patched, datasetID)
	if err != nil {
		outcome.Status = "failed"
		outcome.Detail = err.Error()
		return outcome
	}
	if tag.RowsAffected() == 0 {
		outcome.Status = "not_found"
		return outcome
	}

	outcome.Status = "updated"
	return outcome
}

// DatasetIDFromCollection recovers the dataset uuid from a collection name.
// The stored id uses dashes where the collection name uses underscores.
func DatasetIDFromCollection(collection string) (string, bool) {
	m := collectionIDPattern.FindStringSubmatch(collection)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], "_", "-"), true
}

// flipBackendTag rewrites the type tag inside an index_struct JSON document.
// Reports changed=false when the tag already reads milvus.
func flipBackendTag(raw []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("unparseable index_struct: %w", err)
	}

	current, _ := doc["type"].(string)
	if current == "milvus" {
		return raw, false, nil
	}
	doc["type"] = "milvus"

	patched, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("re-encode index_struct: %w", err)
	}
	return patched, true, nil
}
