// Package transform converts source records into target rows and validates
// batches before insertion.
package transform

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
)

// MaxTextLen is the target store's varchar limit, applied to the id and
// every text-typed field.
const MaxTextLen = 65535

// textPriority is the list of property names tried, in order, for the
// primary text field.
var textPriority = []string{"content", "text", "title", "description", "body", "summary"}

// Transformer converts source records into target rows. The zero value is
// not usable; call New.
type Transformer struct {
	// IncludeSparse adds an empty sparse-vector placeholder to each row.
	IncludeSparse bool
}

// New creates a transformer.
func New() *Transformer {
	return &Transformer{}
}

// Transform converts one source record into a target row. It returns nil
// when the record has no id or an invalid vector; those records are dropped,
// never partially inserted.
//
// The metadata blob carries all source properties, the primary text field
// included. Keep that convention for the whole run: verification counts
// assume every accepted record carries identical field sets.
func (t *Transformer) Transform(rec *endpoint.SourceRecord, desc *schema.Descriptor) endpoint.Row {
	if rec == nil || rec.ID == "" {
		log.Printf("transform: record missing id, skipping")
		return nil
	}
	if !ValidVector(rec.Vector) {
		log.Printf("transform: record %s has invalid vector, skipping", rec.ID)
		return nil
	}

	// The id is never truncated: a rewritten identifier could collide two
	// distinct source records onto one primary key. ValidateBatch excludes
	// rows whose id exceeds the varchar limit.
	row := endpoint.Row{
		schema.FieldID:       rec.ID,
		schema.FieldText:     TruncateText(ExtractTextContent(rec.Properties), MaxTextLen),
		schema.FieldVector:   rec.Vector,
		schema.FieldMetadata: rec.Properties,
	}
	if t.IncludeSparse {
		row[schema.FieldSparse] = map[string]any{}
	}

	if desc != nil {
		for _, fm := range desc.Fields {
			value, present := rec.Properties[fm.OriginalName]
			if !present || value == nil {
				continue
			}
			coerced, err := coerce(value, fm.Kind)
			if err != nil {
				log.Printf("transform: record %s field %s: %v, dropping field", rec.ID, fm.OriginalName, err)
				continue
			}
			row[fm.SafeName] = coerced
		}
	}
	return row
}

// TransformBatch converts a batch, dropping rejected records.
func (t *Transformer) TransformBatch(recs []endpoint.SourceRecord, desc *schema.Descriptor) []endpoint.Row {
	rows := make([]endpoint.Row, 0, len(recs))
	for i := range recs {
		if row := t.Transform(&recs[i], desc); row != nil {
			rows = append(rows, row)
		}
	}
	return rows
}

// ValidateBatch checks transformed rows against the target's hard limits.
// Oversized text is truncated in place; everything else that fails is
// excluded and reported. Returned errors are per-record and never abort the
// batch.
func (t *Transformer) ValidateBatch(rows []endpoint.Row) (valid []endpoint.Row, problems []string) {
	required := []string{schema.FieldID, schema.FieldText, schema.FieldVector, schema.FieldMetadata}

	valid = make([]endpoint.Row, 0, len(rows))
	for i, row := range rows {
		missing := missingFields(row, required)
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("record %d: missing required fields: %s", i, strings.Join(missing, ", ")))
			continue
		}
		id, _ := row[schema.FieldID].(string)
		if len(id) > MaxTextLen {
			problems = append(problems, fmt.Sprintf("record %d: id exceeds %d characters", i, MaxTextLen))
			continue
		}
		if text, ok := row[schema.FieldText].(string); ok && len(text) > MaxTextLen {
			row[schema.FieldText] = TruncateText(text, MaxTextLen)
		}
		if _, err := json.Marshal(row[schema.FieldMetadata]); err != nil {
			problems = append(problems, fmt.Sprintf("record %d: metadata not JSON-serializable: %v", i, err))
			continue
		}
		valid = append(valid, row)
	}
	return valid, problems
}

// ValidVector reports whether a vector is non-empty and fully finite.
func ValidVector(vec []float64) bool {
	if len(vec) == 0 {
		return false
	}
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ExtractTextContent picks the primary text value for a record: the first
// non-empty property from the priority list, else the first string-valued
// property longer than 10 characters, else a JSON rendering of all
// properties.
func ExtractTextContent(properties map[string]any) string {
	for _, field := range textPriority {
		if v, ok := properties[field]; ok && v != nil {
			if s := strings.TrimSpace(stringify(v)); s != "" {
				return s
			}
		}
	}
	// Keyed iteration order is unspecified; sort so the fallback picks the
	// same property on every run.
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := properties[k].(string); ok {
			if trimmed := strings.TrimSpace(s); len(trimmed) > 10 {
				return trimmed
			}
		}
	}
	data, err := json.Marshal(properties)
	if err != nil {
		return ""
	}
	return string(data)
}

// TruncateText bounds a string to maxLen bytes, marking the cut with an
// ellipsis. The cut never splits a multibyte rune.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:runeBoundary(text, maxLen)]
	}
	return text[:runeBoundary(text, maxLen-3)] + "..."
}

// runeBoundary backs cut up to the start of the rune it would split.
func runeBoundary(text string, cut int) int {
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// coerce converts a property value to its declared target kind. A failed
// conversion drops the single field, not the record.
func coerce(value any, kind schema.Kind) (any, error) {
	switch kind {
	case schema.KindText:
		return TruncateText(stringify(value), MaxTextLen), nil
	case schema.KindInt:
		return coerceInt(value)
	case schema.KindFloat:
		return coerceFloat(value)
	case schema.KindBool:
		return coerceBool(value), nil
	default:
		return stringify(value), nil
	}
}

func coerceInt(value any) (int64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		// Parse via float first to tolerate numeric strings like "3.0".
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", v)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

var truthy = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "on": {}}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		_, ok := truthy[strings.ToLower(strings.TrimSpace(v))]
		return ok
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return value != nil
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func missingFields(row endpoint.Row, required []string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := row[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
