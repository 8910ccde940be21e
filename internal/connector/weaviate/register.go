package weaviate

import "github.com/nucleus/vector-migrate/internal/endpoint"

func init() {
	endpoint.RegisterSource("vector.weaviate", func(config map[string]any) (endpoint.SourceStore, error) {
		return New(config)
	})
}
