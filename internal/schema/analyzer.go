// Package schema normalizes source collection schemas into the field
// mapping the transformer and provisioner work from.
package schema

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// Reserved target field names. Sanitized property names must never collide
// with these.
const (
	FieldID       = "id"
	FieldText     = "text"
	FieldVector   = "vector"
	FieldSparse   = "sparse_vector"
	FieldMetadata = "metadata"
)

// MaxFieldNameLen is the target store's field name limit.
const MaxFieldNameLen = 64

// placeholderName is used when sanitization produces an empty result.
const placeholderName = "unknown_field"

// Kind is the primitive class a source property maps to.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
)

// TargetType returns the target store data type for the kind.
func (k Kind) TargetType() string {
	switch k {
	case KindInt:
		return endpoint.FieldTypeInt64
	case KindFloat:
		return endpoint.FieldTypeDouble
	case KindBool:
		return endpoint.FieldTypeBool
	default:
		return endpoint.FieldTypeVarChar
	}
}

// FieldMapping describes how one source property lands in the target.
type FieldMapping struct {
	OriginalName string
	SafeName     string
	DeclaredType string
	Kind         Kind
}

// Descriptor is the normalized, immutable schema mapping for one
// collection. Built once before batch processing begins.
type Descriptor struct {
	Class  string
	Fields []FieldMapping

	byOriginal map[string]int
}

// Lookup returns the mapping for a source property name.
func (d *Descriptor) Lookup(original string) (FieldMapping, bool) {
	idx, ok := d.byOriginal[original]
	if !ok {
		return FieldMapping{}, false
	}
	return d.Fields[idx], true
}

// Analyze inspects a raw source schema and produces the field mapping.
// Unrecognized schema shapes are logged and treated as empty; Analyze
// never fails.
func Analyze(raw *endpoint.RawSchema) *Descriptor {
	desc := &Descriptor{byOriginal: make(map[string]int)}
	if raw == nil {
		return desc
	}
	desc.Class = raw.Class

	props := resolveProperties(raw.Properties)
	taken := reservedNames()
	for _, prop := range props {
		safe := uniqueName(SanitizeFieldName(prop.Name), taken)
		taken[safe] = struct{}{}

		declared := "text"
		if len(prop.DataTypes) > 0 && prop.DataTypes[0] != "" {
			declared = strings.ToLower(prop.DataTypes[0])
		}

		desc.byOriginal[prop.Name] = len(desc.Fields)
		desc.Fields = append(desc.Fields, FieldMapping{
			OriginalName: prop.Name,
			SafeName:     safe,
			DeclaredType: declared,
			Kind:         classify(declared),
		})
	}
	return desc
}

// resolveProperties folds the two source schema shapes (map keyed by name,
// or list of objects with a "name" field) into one canonical ordered slice.
// The shape is resolved here and nowhere else.
func resolveProperties(props any) []endpoint.PropertyDescriptor {
	switch v := props.(type) {
	case nil:
		return nil
	case []endpoint.PropertyDescriptor:
		return v
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]endpoint.PropertyDescriptor, 0, len(names))
		for _, name := range names {
			info, _ := v[name].(map[string]any)
			out = append(out, endpoint.PropertyDescriptor{
				Name:      name,
				DataTypes: dataTypesOf(info),
			})
		}
		return out
	case []any:
		var out []endpoint.PropertyDescriptor
		for _, item := range v {
			info, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := info["name"].(string)
			if name == "" {
				continue
			}
			out = append(out, endpoint.PropertyDescriptor{
				Name:      name,
				DataTypes: dataTypesOf(info),
			})
		}
		return out
	default:
		log.Printf("schema: unknown properties shape %T, treating as empty", props)
		return nil
	}
}

func dataTypesOf(info map[string]any) []string {
	if info == nil {
		return nil
	}
	raw, ok := info["dataType"]
	if !ok {
		raw = info["dataTypes"]
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

func classify(declared string) Kind {
	switch declared {
	case "text", "string":
		return KindText
	case "int", "integer":
		return KindInt
	case "number", "float", "double":
		return KindFloat
	case "boolean", "bool":
		return KindBool
	default:
		return KindText
	}
}

// SanitizeFieldName converts a source property name into a target-safe
// field name: disallowed characters replaced with underscore, a "field_"
// prefix when the first character is not a letter or underscore, truncated
// to MaxFieldNameLen.
func SanitizeFieldName(name string) string {
	sanitized := strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(name)
	if sanitized != "" && !isLetterOrUnderscore(rune(sanitized[0])) {
		sanitized = "field_" + sanitized
	}
	if len(sanitized) > MaxFieldNameLen {
		sanitized = sanitized[:MaxFieldNameLen]
	}
	if sanitized == "" {
		return placeholderName
	}
	return sanitized
}

func isLetterOrUnderscore(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func reservedNames() map[string]struct{} {
	return map[string]struct{}{
		FieldID:       {},
		FieldText:     {},
		FieldVector:   {},
		FieldSparse:   {},
		FieldMetadata: {},
	}
}

// uniqueName suffixes a numeric tag until the name is neither reserved nor
// already taken, keeping the result within the length limit.
func uniqueName(base string, taken map[string]struct{}) string {
	if _, exists := taken[base]; !exists {
		return base
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := base
		if len(candidate)+len(suffix) > MaxFieldNameLen {
			candidate = candidate[:MaxFieldNameLen-len(suffix)]
		}
		candidate += suffix
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}
