// Package bulk implements the file-based import path: a segment-buffered
// writer that stages part files in object storage, and a poller for the
// target's asynchronous import jobs.
package bulk

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// DefaultSegmentSize is the buffered-bytes threshold that triggers a part
// file commit.
const DefaultSegmentSize int64 = 512 * 1024 * 1024

// File serializations for staged parts.
const (
	FileTypeParquet = "parquet"
	FileTypeJSONL   = "jsonl"
)

// WriterConfig configures a segment-buffered writer.
type WriterConfig struct {
	Bucket      string
	Prefix      string
	SegmentSize int64
	FileType    string
	Fields      []endpoint.FieldSpec
}

// Writer buffers rows for one collection and commits them to object storage
// as part files whenever the buffered size crosses the segment threshold.
// Parquet is the default serialization; JSONL.GZ is the fallback.
type Writer struct {
	store      endpoint.ObjectStore
	cfg        WriterConfig
	collection string

	rows      []endpoint.Row
	buffered  int64
	partSeq   int
	parts     []string
	totalRows int64
}

// NewWriter creates a writer staging parts under <prefix>/<collection>/.
func NewWriter(store endpoint.ObjectStore, cfg WriterConfig, collection string) *Writer {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = DefaultSegmentSize
	}
	if cfg.FileType == "" {
		cfg.FileType = FileTypeParquet
	}
	return &Writer{store: store, cfg: cfg, collection: collection}
}

// Append buffers rows, committing a part file when the estimated buffered
// size crosses the segment threshold.
func (w *Writer) Append(ctx context.Context, rows []endpoint.Row) error {
	for _, row := range rows {
		w.rows = append(w.rows, row)
		w.buffered += estimateSize(row)
		if w.buffered >= w.cfg.SegmentSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Commit flushes the remaining buffer and returns the staged part keys and
// total row count.
func (w *Writer) Commit(ctx context.Context) ([]string, int64, error) {
	if len(w.rows) > 0 {
		if err := w.flush(ctx); err != nil {
			return nil, w.totalRows, err
		}
	}
	return w.parts, w.totalRows, nil
}

// flush serializes the buffered rows into one part file and uploads it.
func (w *Writer) flush(ctx context.Context) error {
	rows := w.rows
	if len(rows) == 0 {
		return nil
	}

	data, ext, err := w.encode(rows)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/%s/part_%04d.%s",
		strings.Trim(w.cfg.Prefix, "/"), w.collection, w.partSeq, ext)
	if err := w.store.PutObject(ctx, w.cfg.Bucket, key, data); err != nil {
		return err
	}

	log.Printf("staged %s (%d rows, %d bytes)", key, len(rows), len(data))
	w.parts = append(w.parts, key)
	w.totalRows += int64(len(rows))
	w.partSeq++
	w.rows = w.rows[:0]
	w.buffered = 0
	return nil
}

// encode serializes one segment, falling back from parquet to JSONL.GZ when
// the parquet writer rejects the rows.
func (w *Writer) encode(rows []endpoint.Row) ([]byte, string, error) {
	if w.cfg.FileType == FileTypeParquet {
		data, err := encodeParquet(rows, w.cfg.Fields)
		if err == nil {
			return data, "parquet", nil
		}
		log.Printf("parquet encode failed (%v), falling back to jsonl.gz", err)
	}
	data, err := encodeJSONLGz(rows)
	if err != nil {
		return nil, "", endpoint.WrapError(endpoint.CodeStagingFailed, true, err)
	}
	return data, "jsonl.gz", nil
}

func encodeParquet(rows []endpoint.Row, fields []endpoint.FieldSpec) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(buildParquetSchema(fields), pfw, 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(projectParquetRow(row, fields)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, err
	}
	_ = pfw.Close()
	return buf.Bytes(), nil
}

func encodeJSONLGz(rows []endpoint.Row) ([]byte, error) {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	enc := json.NewEncoder(gz)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			_ = gz.Close()
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildParquetSchema renders the xitongsys JSON schema for the target field
// set. Vectors become a DOUBLE list; JSON-typed fields are stored as UTF8
// strings.
func buildParquetSchema(fields []endpoint.FieldSpec) string {
	specs := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		switch f.DataType {
		case endpoint.FieldTypeFloatVector:
			specs = append(specs, map[string]any{
				"Tag": fmt.Sprintf("name=%s, type=LIST, repetitiontype=OPTIONAL", f.Name),
				"Fields": []map[string]any{
					{"Tag": "name=element, type=DOUBLE, repetitiontype=REQUIRED"},
				},
			})
		default:
			specs = append(specs, map[string]any{
				"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", f.Name, parquetPhysicalType(f.DataType)),
			})
		}
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": specs,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetPhysicalType(dataType string) string {
	switch dataType {
	case endpoint.FieldTypeBool:
		return "BOOLEAN"
	case endpoint.FieldTypeInt64:
		return "INT64"
	case endpoint.FieldTypeDouble:
		return "DOUBLE"
	default:
		return "BYTE_ARRAY, convertedtype=UTF8"
	}
}

// projectParquetRow shapes a row for the parquet writer: JSON-typed values
// are serialized to strings, everything else passes through.
func projectParquetRow(row endpoint.Row, fields []endpoint.FieldSpec) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		val, ok := row[f.Name]
		if !ok {
			out[f.Name] = nil
			continue
		}
		switch f.DataType {
		case endpoint.FieldTypeJSON, endpoint.FieldTypeSparseVector:
			data, err := json.Marshal(val)
			if err != nil {
				out[f.Name] = nil
				continue
			}
			out[f.Name] = string(data)
		default:
			out[f.Name] = val
		}
	}
	return out
}

// estimateSize approximates a row's serialized footprint for segment
// accounting. Exact sizes are not needed; the threshold only bounds memory.
func estimateSize(row endpoint.Row) int64 {
	data, err := json.Marshal(row)
	if err != nil {
		return 1024
	}
	return int64(len(data))
}
