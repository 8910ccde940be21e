package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	value []byte
	err   error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

type fakeDB struct {
	rows    map[string][]byte
	updates map[string][]byte
	execErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:    make(map[string][]byte),
		updates: make(map[string][]byte),
	}
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	id := args[0].(string)
	value, ok := db.rows[id]
	if !ok {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return &fakeRow{value: value}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if db.execErr != nil {
		return pgconn.CommandTag{}, db.execErr
	}
	id := args[1].(string)
	if _, ok := db.rows[id]; !ok {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	db.updates[id] = args[0].([]byte)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (db *fakeDB) Close() {}

const boundCollection = "Vector_index_123e4567_e89b_12d3_a456_426614174000_Node"
const boundDatasetID = "123e4567-e89b-12d3-a456-426614174000"

func TestDatasetIDFromCollection(t *testing.T) {
	id, ok := DatasetIDFromCollection(boundCollection)
	if !ok {
		t.Fatal("expected dataset binding")
	}
	if id != boundDatasetID {
		t.Errorf("id = %s, want %s", id, boundDatasetID)
	}

	if _, ok := DatasetIDFromCollection("Articles"); ok {
		t.Error("plain collection name should carry no binding")
	}
	if _, ok := DatasetIDFromCollection("Vector_index_notauuid_Node"); ok {
		t.Error("malformed uuid segment should carry no binding")
	}
}

func TestPatchVectorStoreUpdates(t *testing.T) {
	db := newFakeDB()
	db.rows[boundDatasetID] = []byte(`{"type":"weaviate","vector_store":{"class_prefix":"Vector_index_123e4567_e89b_12d3_a456_426614174000"}}`)

	stats, err := NewPatcher(db).PatchVectorStore(context.Background(), []string{boundCollection})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.Updated != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	var patched map[string]any
	if err := json.Unmarshal(db.updates[boundDatasetID], &patched); err != nil {
		t.Fatalf("unmarshal patched struct: %v", err)
	}
	if patched["type"] != "milvus" {
		t.Errorf("type = %v, want milvus", patched["type"])
	}
	if _, ok := patched["vector_store"]; !ok {
		t.Error("patch should preserve the rest of index_struct")
	}
}

func TestPatchVectorStoreAlreadyMilvus(t *testing.T) {
	db := newFakeDB()
	db.rows[boundDatasetID] = []byte(`{"type":"milvus"}`)

	stats, err := NewPatcher(db).PatchVectorStore(context.Background(), []string{boundCollection})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.Skipped != 1 || stats.Updated != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(db.updates) != 0 {
		t.Error("no update expected for already patched row")
	}
}

func TestPatchVectorStoreNotFound(t *testing.T) {
	stats, err := NewPatcher(newFakeDB()).PatchVectorStore(context.Background(), []string{boundCollection})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.NotFound != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPatchVectorStoreUnboundCollectionSkipped(t *testing.T) {
	stats, err := NewPatcher(newFakeDB()).PatchVectorStore(context.Background(), []string{"Articles"})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPatchVectorStoreRowFailureContinues(t *testing.T) {
	db := newFakeDB()
	db.rows[boundDatasetID] = []byte(`not-json`)
	other := "Vector_index_aaaaaaaa_bbbb_cccc_dddd_eeeeeeeeeeee_Node"
	db.rows["aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"] = []byte(`{"type":"weaviate"}`)

	stats, err := NewPatcher(db).PatchVectorStore(context.Background(), []string{boundCollection, other})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	if stats.Updated != 1 {
		t.Errorf("updated = %d, want 1: later collections must still be visited", stats.Updated)
	}
}

func TestPatchVectorStoreExecError(t *testing.T) {
	db := newFakeDB()
	db.rows[boundDatasetID] = []byte(`{"type":"weaviate"}`)
	db.execErr = fmt.Errorf("connection reset")

	stats, err := NewPatcher(db).PatchVectorStore(context.Background(), []string{boundCollection})
	if err != nil {
		t.Fatalf("PatchVectorStore: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConfigDSNDefaults(t *testing.T) {
	cfg := &Config{Host: "db.local", Database: "dify", Username: "u", Password: "p"}
	dsn := cfg.DSN()
	want := "postgres://u:p@db.local:5432/dify?sslmode=prefer"
	if dsn != want {
		t.Errorf("dsn = %s, want %s", dsn, want)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Host: "db.local"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing credentials")
	}
}
