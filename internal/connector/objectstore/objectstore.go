package objectstore

import (
	"context"
	"strings"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// Store is the full staging surface: the shared read/write operations plus
// bucket provisioning, which the bulk path needs before the first upload.
type Store interface {
	endpoint.ObjectStore
	EnsureBucket(ctx context.Context, bucket string) error
}

// New selects a backing store for the configured endpoint. http/https
// endpoints get a real S3 client; file:// URLs and anything else fall back
// to the local filesystem store.
func New(cfg *Config) (Store, error) {
	if strings.HasPrefix(cfg.EndpointURL, "http://") || strings.HasPrefix(cfg.EndpointURL, "https://") {
		return NewS3Client(cfg)
	}
	return NewLocalStore(cfg.objectRoot()), nil
}
