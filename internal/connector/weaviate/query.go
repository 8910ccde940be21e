package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
)

// FetchPage returns up to pageSize records ordered after the given cursor
// id, using Weaviate's GraphQL cursor API. An empty afterID starts from the
// beginning. The returned cursor is the id of the last record in the page;
// a page shorter than pageSize means the collection is drained.
func (c *Client) FetchPage(ctx context.Context, collection, afterID string, pageSize int) (*endpoint.Page, error) {
	props, err := c.propertyNames(ctx, collection)
	if err != nil {
		return nil, err
	}

	afterClause := ""
	if afterID != "" {
		afterClause = fmt.Sprintf(", after: %q", afterID)
	}
	fields := "_additional { id vector }"
	if len(props) > 0 {
		fields = strings.Join(props, " ") + " " + fields
	}
	query := fmt.Sprintf("{ Get { %s(limit: %d%s) { %s } } }", collection, pageSize, afterClause, fields)

	data, err := c.graphql(ctx, query)
	if err != nil {
		return nil, err
	}

	get, _ := data["Get"].(map[string]any)
	objects, _ := get[collection].([]any)

	page := &endpoint.Page{Records: make([]endpoint.SourceRecord, 0, len(objects))}
	for _, obj := range objects {
		fields, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		rec := parseRecord(fields)
		page.Records = append(page.Records, rec)
		page.NextCursor = rec.ID
	}
	return page, nil
}

// propertyNames returns the requested property list for a class, derived
// from the cached schema.
func (c *Client) propertyNames(ctx context.Context, collection string) ([]string, error) {
	raw, err := c.GetSchema(ctx, collection)
	if err != nil {
		return nil, err
	}
	desc := schema.Analyze(raw)
	names := make([]string, 0, len(desc.Fields))
	for _, fm := range desc.Fields {
		names = append(names, fm.OriginalName)
	}
	return names, nil
}

// parseRecord splits a GraphQL Get object into properties and the
// _additional id/vector pair.
func parseRecord(fields map[string]any) endpoint.SourceRecord {
	rec := endpoint.SourceRecord{Properties: make(map[string]any, len(fields))}
	for k, v := range fields {
		if k == "_additional" {
			continue
		}
		rec.Properties[k] = v
	}
	additional, _ := fields["_additional"].(map[string]any)
	if id, ok := additional["id"].(string); ok {
		rec.ID = id
	}
	if raw, ok := additional["vector"].([]any); ok {
		rec.Vector = make([]float64, 0, len(raw))
		for _, v := range raw {
			if f, ok := v.(float64); ok {
				rec.Vector = append(rec.Vector, f)
			}
		}
	}
	return rec
}

// graphql posts a query and returns the "data" object. GraphQL-level errors
// are folded into a single coded error.
func (c *Client) graphql(ctx context.Context, query string) (map[string]any, error) {
	resp, err := c.http.Post(ctx, "/v1/graphql", map[string]any{"query": query})
	if err != nil {
		return nil, classifyError(err)
	}

	var body struct {
		Data   map[string]any `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, endpoint.WrapError(endpoint.CodeQueryFailed, false, fmt.Errorf("decode graphql response: %w", err))
	}
	if len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, endpoint.ClassifyMessage(fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	return body.Data, nil
}
