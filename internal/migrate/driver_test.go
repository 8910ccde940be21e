package migrate

import (
	"context"
	"fmt"
	"testing"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
)

type fakeSource struct {
	records  []endpoint.SourceRecord
	countErr error
	fetchErr error
}

func (f *fakeSource) ListCollections(ctx context.Context) ([]string, error) {
	return []string{"Docs"}, nil
}

func (f *fakeSource) GetSchema(ctx context.Context, collection string) (*endpoint.RawSchema, error) {
	return &endpoint.RawSchema{
		Class: collection,
		Properties: map[string]any{
			"content": map[string]any{"dataType": []any{"text"}},
			"rank":    map[string]any{"dataType": []any{"int"}},
		},
	}, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, collection, afterID string, pageSize int) (*endpoint.Page, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	start := 0
	if afterID != "" {
		for i, rec := range f.records {
			if rec.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := start + pageSize
	if end > len(f.records) {
		end = len(f.records)
	}
	page := &endpoint.Page{Records: f.records[start:end]}
	if len(page.Records) > 0 {
		page.NextCursor = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

func (f *fakeSource) Count(ctx context.Context, collection string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.records)), nil
}

func (f *fakeSource) Close() error { return nil }

type fakeTarget struct {
	collections map[string][]endpoint.Row
	created     map[string]int
	indexed     map[string]int
	loaded      map[string]int
	inserts     int

	// insertErrAt fails the Nth insert call (1-based) with insertErr.
	insertErrAt int
	insertErr   error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		collections: make(map[string][]endpoint.Row),
		created:     make(map[string]int),
		indexed:     make(map[string]int),
		loaded:      make(map[string]int),
	}
}

func (f *fakeTarget) HasCollection(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeTarget) CreateCollection(ctx context.Context, name string, fields []endpoint.FieldSpec) error {
	f.collections[name] = nil
	f.created[name]++
	return nil
}

func (f *fakeTarget) CreateIndex(ctx context.Context, collection string, idx endpoint.IndexSpec) error {
	f.indexed[collection]++
	return nil
}

func (f *fakeTarget) LoadCollection(ctx context.Context, name string) error {
	f.loaded[name]++
	return nil
}

func (f *fakeTarget) Insert(ctx context.Context, collection string, rows []endpoint.Row) (int64, error) {
	f.inserts++
	if f.insertErrAt > 0 && f.inserts == f.insertErrAt {
		return 0, f.insertErr
	}
	f.collections[collection] = append(f.collections[collection], rows...)
	return int64(len(rows)), nil
}

func (f *fakeTarget) RowCount(ctx context.Context, collection string) (int64, error) {
	rows, ok := f.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection not found: %s", collection)
	}
	return int64(len(rows)), nil
}

func (f *fakeTarget) QueryCount(ctx context.Context, collection string, limit int64) (int64, error) {
	return f.RowCount(ctx, collection)
}

func (f *fakeTarget) Close() error { return nil }

func sourceWithRecords(n, dim int) *fakeSource {
	records := make([]endpoint.SourceRecord, 0, n)
	for i := 0; i < n; i++ {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = float64(i) + float64(j)/10
		}
		records = append(records, endpoint.SourceRecord{
			ID:     fmt.Sprintf("rec-%03d", i),
			Vector: vec,
			Properties: map[string]any{
				"content": fmt.Sprintf("document number %d with enough text", i),
				"rank":    float64(i),
			},
		})
	}
	return &fakeSource{records: records}
}

func testOptions(batchSize int, limit int64) Options {
	return Options{
		BatchSize: batchSize,
		Limit:     limit,
		Index:     IndexConfig{IndexType: "HNSW", MetricType: "IP", M: 16, EfConstruction: 64},
		Retry:     RetryConfig{Attempts: 1},
	}
}

func TestMigrateCollectionEndToEnd(t *testing.T) {
	source := sourceWithRecords(5, 4)
	target := newFakeTarget()
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", state.Status, state.Error)
	}
	if state.Migrated != 5 {
		t.Errorf("migrated = %d, want 5", state.Migrated)
	}
	if state.Batches != 3 {
		t.Errorf("batches = %d, want 3", state.Batches)
	}
	if state.Dimension != 4 {
		t.Errorf("dimension = %d, want 4", state.Dimension)
	}
	if target.created["Docs"] != 1 {
		t.Errorf("collection created %d times, want 1", target.created["Docs"])
	}
	if state.SourceCount != 5 || state.TargetCount != 5 {
		t.Errorf("verification counts = %d/%d, want 5/5", state.SourceCount, state.TargetCount)
	}
	if !state.CountVerified {
		t.Error("counts should verify")
	}
}

func TestMigrateCollectionSkipsExisting(t *testing.T) {
	source := sourceWithRecords(5, 4)
	target := newFakeTarget()
	target.collections["Docs"] = []endpoint.Row{{"id": "pre"}}
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", state.Status)
	}
	if state.Migrated != 0 {
		t.Errorf("migrated = %d, want 0", state.Migrated)
	}
	if target.inserts != 0 {
		t.Errorf("inserts = %d, want 0", target.inserts)
	}
}

func TestMigrateCollectionFatalAbortsAfterBatch(t *testing.T) {
	source := sourceWithRecords(6, 4)
	target := newFakeTarget()
	target.insertErrAt = 2
	target.insertErr = fmt.Errorf("insert rejected: schema violation on field rank")
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", state.Status)
	}
	if state.Migrated != 2 {
		t.Errorf("migrated = %d, want only batch 1's 2 records", state.Migrated)
	}
	if target.inserts != 2 {
		t.Errorf("inserts = %d, want 2 (aborted after batch 2)", target.inserts)
	}
}

func TestMigrateCollectionRetryableContinues(t *testing.T) {
	source := sourceWithRecords(6, 4)
	target := newFakeTarget()
	target.insertErrAt = 2
	target.insertErr = fmt.Errorf("request timeout while inserting")
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", state.Status, state.Error)
	}
	if state.Migrated != 4 {
		t.Errorf("migrated = %d, want 4 (batch 2 left unmigrated)", state.Migrated)
	}
	if state.FailedBatches != 1 {
		t.Errorf("failed batches = %d, want 1", state.FailedBatches)
	}
}

func TestMigrateCollectionUnauthorizedHalts(t *testing.T) {
	source := sourceWithRecords(6, 4)
	target := newFakeTarget()
	target.insertErrAt = 1
	target.insertErr = fmt.Errorf("401 unauthorized")
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", state.Status)
	}
	if state.Migrated != 0 {
		t.Errorf("migrated = %d, want 0", state.Migrated)
	}
}

func TestMigrateCollectionLimitTrimsExactly(t *testing.T) {
	source := sourceWithRecords(10, 4)
	target := newFakeTarget()
	driver := NewDriver(source, target, testOptions(3, 7))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", state.Status, state.Error)
	}
	if state.Migrated != 7 {
		t.Errorf("migrated = %d, want exactly the limit of 7", state.Migrated)
	}
}

func TestMigrateEmptyCollectionSoftSuccess(t *testing.T) {
	source := &fakeSource{}
	target := newFakeTarget()
	driver := NewDriver(source, target, testOptions(2, 0))

	state := driver.MigrateCollection(context.Background(), "Docs")

	if state.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", state.Status)
	}
	if state.Migrated != 0 {
		t.Errorf("migrated = %d, want 0", state.Migrated)
	}
	if target.created["Docs"] != 0 {
		t.Error("empty collection should never be provisioned")
	}
}

func TestRunContinuesAfterCollectionFailure(t *testing.T) {
	source := sourceWithRecords(4, 4)
	source.fetchErr = fmt.Errorf("graphql query failed")
	target := newFakeTarget()
	driver := NewDriver(source, target, testOptions(2, 0))

	stats := driver.Run(context.Background(), []string{"Docs", "Notes"})

	if len(stats.Collections) != 2 {
		t.Fatalf("tracked %d collections, want 2", len(stats.Collections))
	}
	counts := stats.CountByStatus()
	if counts[StatusFailed] != 2 {
		t.Errorf("status counts = %v", counts)
	}
	if stats.FinishedAt.IsZero() {
		t.Error("run should be finalized")
	}
}

func TestProvisionerIdempotent(t *testing.T) {
	target := newFakeTarget()
	prov := NewProvisioner(target, IndexConfig{IndexType: "HNSW", MetricType: "IP", M: 16, EfConstruction: 64})
	desc := schema.Analyze(&endpoint.RawSchema{Class: "Docs", Properties: map[string]any{
		"content": map[string]any{"dataType": []any{"text"}},
	}})
	ctx := context.Background()

	result, err := prov.Ensure(ctx, "Docs", 8, desc)
	if err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if result != Created {
		t.Fatalf("first Ensure = %v, want Created", result)
	}

	result, err = prov.Ensure(ctx, "Docs", 8, desc)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if result != AlreadyExists {
		t.Fatalf("second Ensure = %v, want AlreadyExists", result)
	}
	if target.created["Docs"] != 1 || target.indexed["Docs"] != 1 || target.loaded["Docs"] != 1 {
		t.Errorf("second Ensure must not recreate or reindex: %+v", target)
	}
}

func TestProvisionerFieldSet(t *testing.T) {
	target := newFakeTarget()
	index := IndexConfig{IndexType: "HNSW", MetricType: "IP", M: 16, EfConstruction: 64, EnableSparse: true}
	prov := NewProvisioner(target, index)

	fields := prov.FieldSet(128, schema.Analyze(&endpoint.RawSchema{Class: "Docs", Properties: map[string]any{
		"rank": map[string]any{"dataType": []any{"int"}},
	}}))

	names := make(map[string]endpoint.FieldSpec)
	for _, f := range fields {
		names[f.Name] = f
	}
	if !names[schema.FieldID].PrimaryKey {
		t.Error("id must be the primary key")
	}
	if names[schema.FieldVector].Dimension != 128 {
		t.Errorf("vector dimension = %d", names[schema.FieldVector].Dimension)
	}
	if _, ok := names[schema.FieldSparse]; !ok {
		t.Error("sparse field missing despite EnableSparse")
	}
	if names["rank"].DataType != endpoint.FieldTypeInt64 {
		t.Errorf("rank type = %s", names["rank"].DataType)
	}
}

func TestSanitizeCollectionName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Docs", "Docs"},
		{"my collection!", "my_collection_"},
		{"9lives", "collection_9lives"},
		{"-lead", "collection_-lead"},
		{"", "unknown_collection"},
	}
	for _, tc := range cases {
		if got := SanitizeCollectionName(tc.in); got != tc.want {
			t.Errorf("SanitizeCollectionName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := SanitizeCollectionName(string(make([]byte, 0, 300)) + fmt.Sprintf("%0300d", 1))
	if len(long) > MaxCollectionNameLen {
		t.Errorf("sanitized length = %d, want <= %d", len(long), MaxCollectionNameLen)
	}
}
