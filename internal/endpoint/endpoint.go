// Package endpoint defines the store contracts the migration pipeline runs
// against.
//
// Architecture:
//
//	SourceStore - read side (ListCollections, GetSchema, FetchPage, Count)
//	TargetStore - write side (HasCollection, CreateCollection, Insert, ...)
//	ObjectStore - staging destination for the bulk-import path
//
// Connectors implement these interfaces and translate vendor failures into
// coded errors (see errors.go) at the boundary, so the driver never inspects
// vendor error text directly.
package endpoint

import "context"

// SourceStore reads collections from the system being migrated away from.
type SourceStore interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// GetSchema returns the raw property schema for a collection.
	GetSchema(ctx context.Context, collection string) (*RawSchema, error)

	// FetchPage returns up to pageSize records ordered after the given
	// cursor id. An empty afterID starts from the beginning. The returned
	// cursor is the id of the last record in the page.
	FetchPage(ctx context.Context, collection, afterID string, pageSize int) (*Page, error)

	// Count returns the total record count for a collection. Best effort:
	// callers must tolerate errors and fall back to "unknown".
	Count(ctx context.Context, collection string) (int64, error)

	// Close releases the underlying client.
	Close() error
}

// TargetStore writes collections into the system being migrated to.
type TargetStore interface {
	// HasCollection reports whether a collection already exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given field list.
	CreateCollection(ctx context.Context, name string, fields []FieldSpec) error

	// CreateIndex builds a vector index on the named field.
	CreateIndex(ctx context.Context, collection string, idx IndexSpec) error

	// LoadCollection makes the collection queryable.
	LoadCollection(ctx context.Context, name string) error

	// Insert writes a batch of rows and returns the number accepted.
	Insert(ctx context.Context, collection string, rows []Row) (int64, error)

	// RowCount returns the row count from collection statistics.
	RowCount(ctx context.Context, collection string) (int64, error)

	// QueryCount is a bounded count fallback for stores whose statistics
	// lag behind recent inserts.
	QueryCount(ctx context.Context, collection string, limit int64) (int64, error)

	// Close releases the underlying client.
	Close() error
}

// BulkTarget is implemented by target stores that accept externally staged
// files for asynchronous import.
type BulkTarget interface {
	TargetStore

	// StartImport submits an import job over staged files and returns a
	// job id to poll.
	StartImport(ctx context.Context, collection string, files []string) (string, error)

	// ImportProgress reports the state of a previously submitted job.
	ImportProgress(ctx context.Context, jobID string) (*ImportStatus, error)
}

// ObjectStore is the staging destination for the bulk-import path.
type ObjectStore interface {
	Ping(ctx context.Context) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}
