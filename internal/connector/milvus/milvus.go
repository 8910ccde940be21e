// Package milvus implements the vector.milvus target connector against the
// Milvus/Zilliz RESTful v2 surface: collection management, vector index
// creation, batch inserts, row statistics, and asynchronous bulk-import
// jobs over externally staged files.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nucleus/vector-migrate/internal/connector/httpx"
	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// Config captures the vector.milvus connector configuration.
type Config struct {
	URI      string
	Token    string
	Database string
	Timeout  time.Duration
}

// ParseConfig builds a Config from loose parameters.
func ParseConfig(params map[string]any) *Config {
	cfg := &Config{
		URI:      firstString(params, "uri", "zillizUri", "endpoint"),
		Token:    firstString(params, "token", "apiKey", "api_key"),
		Database: firstString(params, "database", "dbName", "db_name"),
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg
}

// Validate enforces required connection settings.
func (c *Config) Validate() *endpoint.ValidationResult {
	if c.URI == "" {
		return &endpoint.ValidationResult{
			Valid:     false,
			Message:   fmt.Sprintf("%s: uri is required", endpoint.CodeEndpointUnreachable),
			Code:      endpoint.CodeEndpointUnreachable,
			Retryable: true,
		}
	}
	if c.Token == "" {
		return &endpoint.ValidationResult{
			Valid:     false,
			Message:   fmt.Sprintf("%s: token is required", endpoint.CodeAuthInvalid),
			Code:      endpoint.CodeAuthInvalid,
			Retryable: false,
		}
	}
	return &endpoint.ValidationResult{Valid: true, Message: "connection parameters look valid"}
}

// Client is the Milvus/Zilliz target store.
type Client struct {
	config *Config
	http   *httpx.Client
}

// New creates a Milvus client from loose parameters.
func New(params map[string]any) (*Client, error) {
	cfg := ParseConfig(params)
	if res := cfg.Validate(); !res.Valid {
		return nil, endpoint.WrapError(res.Code, res.Retryable, fmt.Errorf("%s", res.Message))
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig creates a Milvus client from a parsed config.
func NewWithConfig(cfg *Config) *Client {
	return &Client{
		config: cfg,
		http: httpx.NewClient(&httpx.ClientConfig{
			BaseURL:     cfg.URI,
			BearerToken: cfg.Token,
			Timeout:     cfg.Timeout,
		}),
	}
}

// Ping verifies connectivity by listing collections.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "/v2/vectordb/collections/list", map[string]any{})
	return err
}

// HasCollection reports whether a collection already exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	data, err := c.call(ctx, "/v2/vectordb/collections/has", map[string]any{
		"collectionName": name,
	})
	if err != nil {
		return false, err
	}
	obj, _ := data.(map[string]any)
	has, _ := obj["has"].(bool)
	return has, nil
}

// CreateCollection creates a collection with the given field list.
func (c *Client) CreateCollection(ctx context.Context, name string, fields []endpoint.FieldSpec) error {
	specs := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		spec := map[string]any{
			"fieldName": f.Name,
			"dataType":  f.DataType,
		}
		if f.PrimaryKey {
			spec["isPrimary"] = true
		}
		params := map[string]any{}
		if f.Dimension > 0 {
			params["dim"] = strconv.Itoa(f.Dimension)
		}
		if f.MaxLength > 0 {
			params["max_length"] = strconv.Itoa(f.MaxLength)
		}
		if len(params) > 0 {
			spec["elementTypeParams"] = params
		}
		specs = append(specs, spec)
	}

	_, err := c.call(ctx, "/v2/vectordb/collections/create", map[string]any{
		"collectionName": name,
		"schema": map[string]any{
			"autoId":              false,
			"enabledDynamicField": false,
			"fields":              specs,
		},
	})
	return err
}

// CreateIndex builds a vector index on the named field.
func (c *Client) CreateIndex(ctx context.Context, collection string, idx endpoint.IndexSpec) error {
	params := map[string]any{"index_type": idx.IndexType}
	for k, v := range idx.Params {
		params[k] = v
	}
	_, err := c.call(ctx, "/v2/vectordb/indexes/create", map[string]any{
		"collectionName": collection,
		"indexParams": []map[string]any{
			{
				"fieldName":  idx.FieldName,
				"indexName":  idx.FieldName + "_idx",
				"metricType": idx.MetricType,
				"params":     params,
			},
		},
	})
	return err
}

// LoadCollection makes the collection queryable.
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	_, err := c.call(ctx, "/v2/vectordb/collections/load", map[string]any{
		"collectionName": name,
	})
	return err
}

// Insert writes a batch of rows and returns the number accepted.
func (c *Client) Insert(ctx context.Context, collection string, rows []endpoint.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	data, err := c.call(ctx, "/v2/vectordb/entities/insert", map[string]any{
		"collectionName": collection,
		"data":           rows,
	})
	if err != nil {
		return 0, err
	}
	obj, _ := data.(map[string]any)
	if count, ok := obj["insertCount"].(float64); ok {
		return int64(count), nil
	}
	return int64(len(rows)), nil
}

// RowCount returns the row count from collection statistics.
func (c *Client) RowCount(ctx context.Context, collection string) (int64, error) {
	data, err := c.call(ctx, "/v2/vectordb/collections/get_stats", map[string]any{
		"collectionName": collection,
	})
	if err != nil {
		return 0, err
	}
	obj, _ := data.(map[string]any)
	switch v := obj["rowCount"].(type) {
	case float64:
		return int64(v), nil
	case string:
		n, convErr := strconv.ParseInt(v, 10, 64)
		if convErr != nil {
			return 0, endpoint.WrapError(endpoint.CodeQueryFailed, false,
				fmt.Errorf("unparseable rowCount %q", v))
		}
		return n, nil
	}
	return 0, endpoint.WrapError(endpoint.CodeQueryFailed, false,
		fmt.Errorf("stats response missing rowCount for %s", collection))
}

// QueryCount is a bounded count(*) fallback for when statistics lag behind
// recent inserts.
func (c *Client) QueryCount(ctx context.Context, collection string, limit int64) (int64, error) {
	data, err := c.call(ctx, "/v2/vectordb/entities/query", map[string]any{
		"collectionName": collection,
		"filter":         "",
		"outputFields":   []string{"count(*)"},
		"limit":          limit,
	})
	if err != nil {
		return 0, err
	}
	results, _ := data.([]any)
	if len(results) == 0 {
		return 0, nil
	}
	row, _ := results[0].(map[string]any)
	if count, ok := row["count(*)"].(float64); ok {
		return int64(count), nil
	}
	return 0, nil
}

// Close releases the client.
func (c *Client) Close() error { return nil }

// call posts a request body and unwraps the {code, message, data} envelope.
func (c *Client) call(ctx context.Context, path string, body map[string]any) (any, error) {
	if c.config.Database != "" {
		body["dbName"] = c.config.Database
	}
	resp, err := c.http.Post(ctx, path, body)
	if err != nil {
		return nil, classifyError(err)
	}

	var envelope struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}
	if err := resp.JSON(&envelope); err != nil {
		return nil, endpoint.WrapError(endpoint.CodeQueryFailed, false,
			fmt.Errorf("decode response from %s: %w", path, err))
	}
	if envelope.Code != 0 {
		return nil, classifyAPIError(envelope.Code, envelope.Message)
	}
	return envelope.Data, nil
}

func firstString(params map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := params[key]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
