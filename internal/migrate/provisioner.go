package migrate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
	"github.com/nucleus/vector-migrate/internal/transform"
)

// MaxCollectionNameLen is the target store's collection name limit.
const MaxCollectionNameLen = 255

// EnsureResult reports what the provisioner did.
type EnsureResult int

const (
	Created EnsureResult = iota
	AlreadyExists
)

// IndexConfig carries the vector index construction parameters.
type IndexConfig struct {
	IndexType      string
	MetricType     string
	M              int
	EfConstruction int
	EnableSparse   bool
}

// Provisioner idempotently ensures target collections and their indexes.
type Provisioner struct {
	target endpoint.TargetStore
	index  IndexConfig
}

// NewProvisioner creates a provisioner writing through the given target.
func NewProvisioner(target endpoint.TargetStore, index IndexConfig) *Provisioner {
	return &Provisioner{target: target, index: index}
}

// Ensure makes sure a collection of the right shape exists and is loaded.
// An existing collection is left untouched and reported as AlreadyExists;
// the caller then skips the migration for it. Creation failures propagate
// so a partially indexed collection is never treated as ready.
func (p *Provisioner) Ensure(ctx context.Context, name string, dimension int, desc *schema.Descriptor) (EnsureResult, error) {
	exists, err := p.target.HasCollection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return AlreadyExists, nil
	}

	fields := p.FieldSet(dimension, desc)
	if err := p.target.CreateCollection(ctx, name, fields); err != nil {
		return 0, fmt.Errorf("create collection %s: %w", name, err)
	}

	if err := p.target.CreateIndex(ctx, name, endpoint.IndexSpec{
		FieldName:  schema.FieldVector,
		IndexType:  p.index.IndexType,
		MetricType: p.index.MetricType,
		Params: map[string]any{
			"M":              p.index.M,
			"efConstruction": p.index.EfConstruction,
		},
	}); err != nil {
		return 0, fmt.Errorf("create vector index on %s: %w", name, err)
	}

	if p.index.EnableSparse {
		if err := p.target.CreateIndex(ctx, name, endpoint.IndexSpec{
			FieldName:  schema.FieldSparse,
			IndexType:  "SPARSE_INVERTED_INDEX",
			MetricType: "IP",
		}); err != nil {
			return 0, fmt.Errorf("create sparse index on %s: %w", name, err)
		}
	}

	if err := p.target.LoadCollection(ctx, name); err != nil {
		return 0, fmt.Errorf("load collection %s: %w", name, err)
	}

	log.Printf("created collection %s (dim=%d, %d schema fields)", name, dimension, len(desc.Fields))
	return Created, nil
}

// FieldSet builds the fixed target field set plus one field per mapped
// source property. The bulk staging writer uses it to shape part files.
func (p *Provisioner) FieldSet(dimension int, desc *schema.Descriptor) []endpoint.FieldSpec {
	fields := []endpoint.FieldSpec{
		{Name: schema.FieldID, DataType: endpoint.FieldTypeVarChar, PrimaryKey: true, MaxLength: transform.MaxTextLen},
		{Name: schema.FieldText, DataType: endpoint.FieldTypeVarChar, MaxLength: transform.MaxTextLen},
		{Name: schema.FieldVector, DataType: endpoint.FieldTypeFloatVector, Dimension: dimension},
	}
	if p.index.EnableSparse {
		fields = append(fields, endpoint.FieldSpec{
			Name: schema.FieldSparse, DataType: endpoint.FieldTypeSparseVector,
		})
	}
	fields = append(fields, endpoint.FieldSpec{
		Name: schema.FieldMetadata, DataType: endpoint.FieldTypeJSON,
	})

	for _, mapping := range desc.Fields {
		spec := endpoint.FieldSpec{
			Name:     mapping.SafeName,
			DataType: mapping.Kind.TargetType(),
		}
		if spec.DataType == endpoint.FieldTypeVarChar {
			spec.MaxLength = transform.MaxTextLen
		}
		fields = append(fields, spec)
	}
	return fields
}

// SanitizeCollectionName maps a source collection name to a storage-safe
// target name: alphanumeric, underscore, and hyphen only, not starting
// with a digit, at most MaxCollectionNameLen characters.
func SanitizeCollectionName(name string) string {
	if name == "" {
		return "unknown_collection"
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) && r < 128 || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()

	first := rune(safe[0])
	if !(unicode.IsLetter(first) && first < 128 || first == '_') {
		safe = "collection_" + safe
	}
	if len(safe) > MaxCollectionNameLen {
		safe = safe[:MaxCollectionNameLen]
	}
	return safe
}
