package milvus

import "github.com/nucleus/vector-migrate/internal/endpoint"

func init() {
	endpoint.RegisterTarget("vector.milvus", func(config map[string]any) (endpoint.TargetStore, error) {
		return New(config)
	})
}
