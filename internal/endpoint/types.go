package endpoint

// SourceRecord is one record read from the source store: an opaque id, a
// dense vector, and the named properties. Records are read-only once built.
type SourceRecord struct {
	ID         string
	Vector     []float64
	Properties map[string]any
}

// Page is one cursor page of source records. NextCursor is the id of the
// last record actually returned, or "" when the page is empty.
type Page struct {
	Records    []SourceRecord
	NextCursor string
}

// RawSchema is the source collection schema before normalization. Source
// schemas represent properties either as a map keyed by name or as a list of
// objects with a "name" field; connectors hand over whichever shape they got
// and the analyzer resolves it once (see schema.Analyze).
type RawSchema struct {
	Class      string
	Properties any
}

// PropertyDescriptor is the canonical per-property form after shape
// resolution: ordered, one entry per named property.
type PropertyDescriptor struct {
	Name      string
	DataTypes []string
}

// Row is a single record in target shape, keyed by target field name.
type Row = map[string]any

// Field types understood by the target store.
const (
	FieldTypeVarChar      = "VarChar"
	FieldTypeInt64        = "Int64"
	FieldTypeDouble       = "Double"
	FieldTypeBool         = "Bool"
	FieldTypeFloatVector  = "FloatVector"
	FieldTypeSparseVector = "SparseFloatVector"
	FieldTypeJSON         = "JSON"
)

// FieldSpec describes one field of a target collection.
type FieldSpec struct {
	Name       string
	DataType   string
	PrimaryKey bool
	Dimension  int
	MaxLength  int
}

// IndexSpec describes a vector index to build after collection creation.
type IndexSpec struct {
	FieldName  string
	IndexType  string // e.g. "HNSW", "SPARSE_INVERTED_INDEX"
	MetricType string // e.g. "IP", "COSINE"
	Params     map[string]any
}

// Import job states reported by BulkTarget.ImportProgress.
const (
	ImportStatePending   = "Pending"
	ImportStateRunning   = "Running"
	ImportStateCompleted = "Completed"
	ImportStateFailed    = "Failed"
)

// ImportStatus is the state of an asynchronous bulk-import job.
type ImportStatus struct {
	JobID        string
	State        string
	Progress     int // percent, 0..100
	ImportedRows int64
	Reason       string
}

// Terminal reports whether the job has finished, successfully or not.
func (s *ImportStatus) Terminal() bool {
	return s.State == ImportStateCompleted || s.State == ImportStateFailed
}

// ValidationResult is returned by connector config validation.
type ValidationResult struct {
	Valid           bool
	Message         string
	Code            string
	Retryable       bool
	DetectedVersion string
}
