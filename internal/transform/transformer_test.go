package transform

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
)

func docsDescriptor() *schema.Descriptor {
	return schema.Analyze(&endpoint.RawSchema{
		Class: "Docs",
		Properties: map[string]any{
			"content":  map[string]any{"dataType": []any{"text"}},
			"views":    map[string]any{"dataType": []any{"int"}},
			"score":    map[string]any{"dataType": []any{"number"}},
			"archived": map[string]any{"dataType": []any{"boolean"}},
		},
	})
}

func validRecord() *endpoint.SourceRecord {
	return &endpoint.SourceRecord{
		ID:     "rec-1",
		Vector: []float64{0.1, 0.2, 0.3},
		Properties: map[string]any{
			"content":  "a body of text long enough to matter",
			"views":    float64(42),
			"score":    0.93,
			"archived": "yes",
		},
	}
}

func TestTransformValidRecord(t *testing.T) {
	row := New().Transform(validRecord(), docsDescriptor())
	if row == nil {
		t.Fatal("Transform returned nil for a valid record")
	}

	if row[schema.FieldID] != "rec-1" {
		t.Errorf("id = %v", row[schema.FieldID])
	}
	if row[schema.FieldText] != "a body of text long enough to matter" {
		t.Errorf("text = %v", row[schema.FieldText])
	}
	if row["views"] != int64(42) {
		t.Errorf("views = %v (%T), want int64(42)", row["views"], row["views"])
	}
	if row["archived"] != true {
		t.Errorf("archived = %v, want true", row["archived"])
	}

	meta, ok := row[schema.FieldMetadata].(map[string]any)
	if !ok {
		t.Fatalf("metadata = %T", row[schema.FieldMetadata])
	}
	if _, ok := meta["content"]; !ok {
		t.Error("metadata must carry the primary text property")
	}
}

func TestTransformRejectsMissingID(t *testing.T) {
	rec := validRecord()
	rec.ID = ""
	if row := New().Transform(rec, docsDescriptor()); row != nil {
		t.Error("expected nil for record without id")
	}
	if row := New().Transform(nil, docsDescriptor()); row != nil {
		t.Error("expected nil for nil record")
	}
}

func TestTransformRejectsInvalidVectors(t *testing.T) {
	cases := map[string][]float64{
		"empty":   {},
		"nil":     nil,
		"nan":     {0.1, math.NaN()},
		"inf":     {math.Inf(1), 0.2},
		"neg inf": {0.1, math.Inf(-1)},
	}
	for name, vec := range cases {
		t.Run(name, func(t *testing.T) {
			rec := validRecord()
			rec.Vector = vec
			if row := New().Transform(rec, docsDescriptor()); row != nil {
				t.Errorf("expected nil for %s vector", name)
			}
		})
	}
}

func TestTransformSparsePlaceholder(t *testing.T) {
	tr := New()
	tr.IncludeSparse = true
	row := tr.Transform(validRecord(), docsDescriptor())
	sparse, ok := row[schema.FieldSparse].(map[string]any)
	if !ok {
		t.Fatalf("sparse = %T, want empty map", row[schema.FieldSparse])
	}
	if len(sparse) != 0 {
		t.Errorf("sparse placeholder must be empty, got %v", sparse)
	}
}

func TestTransformCoercionFailureDropsField(t *testing.T) {
	rec := validRecord()
	rec.Properties["views"] = []any{"not", "a", "number"}
	row := New().Transform(rec, docsDescriptor())
	if row == nil {
		t.Fatal("coercion failure must not drop the record")
	}
	if _, present := row["views"]; present {
		t.Error("uncoercible field should be dropped from the row")
	}
}

func TestExtractTextContentPriority(t *testing.T) {
	props := map[string]any{
		"summary": "short summary wins over fallback",
		"title":   "the title",
		"other":   "a string property longer than ten characters",
	}
	if got := ExtractTextContent(props); got != "the title" {
		t.Errorf("got %q, want title (higher priority than summary)", got)
	}

	delete(props, "title")
	if got := ExtractTextContent(props); got != "short summary wins over fallback" {
		t.Errorf("got %q, want summary", got)
	}

	delete(props, "summary")
	if got := ExtractTextContent(props); got != "a string property longer than ten characters" {
		t.Errorf("got %q, want long string fallback", got)
	}

	if got := ExtractTextContent(map[string]any{"n": float64(3)}); !strings.Contains(got, `"n":3`) {
		t.Errorf("got %q, want JSON fallback", got)
	}
}

func TestTruncateText(t *testing.T) {
	long := strings.Repeat("x", MaxTextLen+100)
	got := TruncateText(long, MaxTextLen)
	if len(got) != MaxTextLen {
		t.Errorf("length = %d, want %d", len(got), MaxTextLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated text must end with ellipsis")
	}

	short := "untouched"
	if TruncateText(short, MaxTextLen) != short {
		t.Error("short text must pass through unchanged")
	}
}

func TestTruncateTextKeepsRuneBoundary(t *testing.T) {
	// Two-byte runes; an odd byte limit would land mid-rune.
	long := strings.Repeat("é", 60)
	got := TruncateText(long, 100)
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if len(got) > 100 {
		t.Errorf("length = %d, want <= 100", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated text must end with ellipsis")
	}
}

func TestExtractTextContentFallbackIsDeterministic(t *testing.T) {
	props := map[string]any{
		"zeta":  "a trailing candidate long enough to qualify",
		"alpha": "the leading candidate long enough to qualify",
		"mid":   "a middle candidate long enough to qualify",
	}
	want := "the leading candidate long enough to qualify"
	for i := 0; i < 25; i++ {
		if got := ExtractTextContent(props); got != want {
			t.Fatalf("fallback picked %q on iteration %d, want %q", got, i, want)
		}
	}
}

func TestValidateBatch(t *testing.T) {
	tr := New()
	desc := docsDescriptor()
	rows := tr.TransformBatch([]endpoint.SourceRecord{
		*validRecord(),
		{ID: "rec-2", Vector: []float64{0.5}, Properties: map[string]any{"content": "more text content here"}},
	}, desc)

	valid, problems := tr.ValidateBatch(rows)
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
	if len(valid) != 2 {
		t.Fatalf("valid = %d, want 2", len(valid))
	}
}

func TestValidateBatchMissingField(t *testing.T) {
	rows := []endpoint.Row{
		{schema.FieldID: "a", schema.FieldText: "t", schema.FieldVector: []float64{0.1}},
	}
	valid, problems := New().ValidateBatch(rows)
	if len(valid) != 0 {
		t.Errorf("valid = %d, want 0", len(valid))
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "metadata") {
		t.Errorf("problems = %v", problems)
	}
}

func TestValidateBatchTruncatesOversizedText(t *testing.T) {
	rows := []endpoint.Row{
		{
			schema.FieldID:       "a",
			schema.FieldText:     strings.Repeat("y", MaxTextLen+10),
			schema.FieldVector:   []float64{0.1},
			schema.FieldMetadata: map[string]any{},
		},
	}
	valid, problems := New().ValidateBatch(rows)
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
	if len(valid) != 1 {
		t.Fatal("oversized text must be truncated, not rejected")
	}
	if text := valid[0][schema.FieldText].(string); len(text) != MaxTextLen {
		t.Errorf("text length = %d, want %d", len(text), MaxTextLen)
	}
}

func TestValidateBatchExcludesOversizedID(t *testing.T) {
	tr := New()
	desc := docsDescriptor()
	rec := validRecord()
	rec.ID = strings.Repeat("x", MaxTextLen+100)

	rows := tr.TransformBatch([]endpoint.SourceRecord{*rec}, desc)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if id := rows[0][schema.FieldID].(string); len(id) != MaxTextLen+100 {
		t.Fatalf("id length = %d, want untruncated %d", len(id), MaxTextLen+100)
	}

	valid, problems := tr.ValidateBatch(rows)
	if len(valid) != 0 {
		t.Errorf("valid = %d, oversized id must be excluded, never truncated", len(valid))
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "id exceeds") {
		t.Errorf("problems = %v", problems)
	}
}

func TestValidateBatchUnserializableMetadata(t *testing.T) {
	rows := []endpoint.Row{
		{
			schema.FieldID:       "a",
			schema.FieldText:     "t",
			schema.FieldVector:   []float64{0.1},
			schema.FieldMetadata: map[string]any{"bad": func() {}},
		},
	}
	valid, problems := New().ValidateBatch(rows)
	if len(valid) != 0 {
		t.Errorf("valid = %d, want 0", len(valid))
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "JSON") {
		t.Errorf("problems = %v", problems)
	}
}

func TestCoerceIntVariants(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{true, 1},
		{false, 0},
		{float64(7.9), 7},
		{"3.0", 3},
		{" 12 ", 12},
	}
	for _, tc := range cases {
		got, err := coerceInt(tc.in)
		if err != nil {
			t.Errorf("coerceInt(%v): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("coerceInt(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}

	if _, err := coerceInt("not a number"); err == nil {
		t.Error("expected error for unparseable string")
	}
}

func TestCoerceBoolTruthySet(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "yes", "On"} {
		if !coerceBool(s) {
			t.Errorf("coerceBool(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"false", "0", "no", "off", "anything else"} {
		if coerceBool(s) {
			t.Errorf("coerceBool(%q) = true, want false", s)
		}
	}
	if !coerceBool(int64(5)) || coerceBool(float64(0)) {
		t.Error("numeric truthiness broken")
	}
}

func TestRoundTripValidation(t *testing.T) {
	tr := New()
	desc := docsDescriptor()

	recs := []endpoint.SourceRecord{
		{ID: "a", Vector: []float64{1}, Properties: map[string]any{}},
		{ID: "b", Vector: []float64{1, 2, 3}, Properties: map[string]any{"views": float64(1)}},
		*validRecord(),
	}
	rows := tr.TransformBatch(recs, desc)
	valid, problems := tr.ValidateBatch(rows)

	if len(problems) != 0 {
		t.Errorf("problems = %v", problems)
	}
	if len(valid) != len(recs) {
		t.Errorf("valid = %d, want %d: every transformed record must validate", len(valid), len(recs))
	}
}
