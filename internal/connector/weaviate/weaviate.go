// Package weaviate implements the vector.weaviate source connector. It
// drives the Weaviate HTTP surface directly: the REST schema endpoints for
// discovery and GraphQL for cursor-paginated reads and aggregate counts.
package weaviate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nucleus/vector-migrate/internal/connector/httpx"
	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// Config captures the vector.weaviate connector configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ParseConfig builds a Config from loose parameters.
func ParseConfig(params map[string]any) *Config {
	cfg := &Config{
		Endpoint: firstString(params, "endpoint", "url", "weaviateEndpoint"),
		APIKey:   firstString(params, "apiKey", "api_key", "token"),
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg
}

// Client is the Weaviate source store.
type Client struct {
	config *Config
	http   *httpx.Client

	mu      sync.Mutex
	schemas map[string]*endpoint.RawSchema // per-collection schema cache
}

// New creates a Weaviate client from loose parameters.
func New(params map[string]any) (*Client, error) {
	cfg := ParseConfig(params)
	return NewWithConfig(cfg), nil
}

// NewWithConfig creates a Weaviate client from a parsed config.
func NewWithConfig(cfg *Config) *Client {
	return &Client{
		config: cfg,
		http: httpx.NewClient(&httpx.ClientConfig{
			BaseURL:     cfg.Endpoint,
			BearerToken: cfg.APIKey,
			Timeout:     cfg.Timeout,
		}),
		schemas: make(map[string]*endpoint.RawSchema),
	}
}

// Ready checks connectivity against the readiness endpoint.
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.http.Get(ctx, "/v1/.well-known/ready", nil)
	if err != nil {
		return classifyError(err)
	}
	if !resp.IsSuccess() {
		return endpoint.WrapError(endpoint.CodeEndpointUnreachable, true,
			fmt.Errorf("weaviate not ready: HTTP %d", resp.StatusCode))
	}
	return nil
}

// ListCollections returns all class names from the schema.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := c.http.Get(ctx, "/v1/schema", nil)
	if err != nil {
		return nil, classifyError(err)
	}
	var body struct {
		Classes []struct {
			Class string `json:"class"`
		} `json:"classes"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, endpoint.WrapError(endpoint.CodeQueryFailed, false, fmt.Errorf("decode schema: %w", err))
	}
	names := make([]string, 0, len(body.Classes))
	for _, cls := range body.Classes {
		names = append(names, cls.Class)
	}
	return names, nil
}

// GetSchema returns the raw property schema for one class. The properties
// shape is handed over as received; the analyzer resolves it.
func (c *Client) GetSchema(ctx context.Context, collection string) (*endpoint.RawSchema, error) {
	c.mu.Lock()
	if cached, ok := c.schemas[collection]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.http.Get(ctx, "/v1/schema/"+collection, nil)
	if err != nil {
		return nil, classifyError(err)
	}
	var body map[string]any
	if err := resp.JSON(&body); err != nil {
		return nil, endpoint.WrapError(endpoint.CodeQueryFailed, false, fmt.Errorf("decode class schema: %w", err))
	}
	raw := &endpoint.RawSchema{Class: collection, Properties: body["properties"]}
	if class, ok := body["class"].(string); ok && class != "" {
		raw.Class = class
	}

	c.mu.Lock()
	c.schemas[collection] = raw
	c.mu.Unlock()
	return raw, nil
}

// Count runs an aggregate count over the class. Best effort: callers fall
// back to "unknown total" on error.
func (c *Client) Count(ctx context.Context, collection string) (int64, error) {
	query := fmt.Sprintf("{ Aggregate { %s { meta { count } } } }", collection)
	data, err := c.graphql(ctx, query)
	if err != nil {
		return 0, err
	}

	aggregate, _ := data["Aggregate"].(map[string]any)
	entries, _ := aggregate[collection].([]any)
	if len(entries) == 0 {
		return 0, endpoint.WrapError(endpoint.CodeQueryFailed, false,
			fmt.Errorf("aggregate returned no entries for %s", collection))
	}
	entry, _ := entries[0].(map[string]any)
	meta, _ := entry["meta"].(map[string]any)
	count, ok := meta["count"].(float64)
	if !ok {
		return 0, endpoint.WrapError(endpoint.CodeQueryFailed, false,
			fmt.Errorf("aggregate count missing for %s", collection))
	}
	return int64(count), nil
}

// Close releases the client. The HTTP client holds no persistent
// connections worth tearing down explicitly.
func (c *Client) Close() error { return nil }

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
