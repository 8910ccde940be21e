package migrate

import (
	"context"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// Paginator drains one collection from the source store in ordered pages,
// carrying the last record's id as the resumption cursor. A limit caps the
// total records returned across all pages, trimming the final page.
type Paginator struct {
	source     endpoint.SourceStore
	collection string
	pageSize   int
	limit      int64 // 0 means unlimited

	cursor  string
	fetched int64
	done    bool
}

// NewPaginator creates a paginator over one collection.
func NewPaginator(source endpoint.SourceStore, collection string, pageSize int, limit int64) *Paginator {
	return &Paginator{
		source:     source,
		collection: collection,
		pageSize:   pageSize,
		limit:      limit,
	}
}

// Next returns the next page of records, or an empty slice once the
// collection is drained. A page shorter than the page size ends iteration.
func (p *Paginator) Next(ctx context.Context) ([]endpoint.SourceRecord, error) {
	if p.done {
		return nil, nil
	}

	request := p.pageSize
	if p.limit > 0 {
		remaining := p.limit - p.fetched
		if remaining <= 0 {
			p.done = true
			return nil, nil
		}
		if int64(request) > remaining {
			request = int(remaining)
		}
	}

	page, err := p.source.FetchPage(ctx, p.collection, p.cursor, request)
	if err != nil {
		return nil, err
	}

	records := page.Records
	if len(records) < request {
		p.done = true
	}
	if len(records) == 0 {
		return nil, nil
	}

	p.cursor = page.NextCursor
	p.fetched += int64(len(records))
	if p.limit > 0 && p.fetched >= p.limit {
		p.done = true
	}
	return records, nil
}

// Fetched reports how many records have been returned so far.
func (p *Paginator) Fetched() int64 { return p.fetched }

// Cursor exposes the resumption cursor after the most recent page.
func (p *Paginator) Cursor() string { return p.cursor }

// Done reports whether the collection is exhausted.
func (p *Paginator) Done() bool { return p.done }

// Total fetches the collection's aggregate count once, best effort. Callers
// fall back to ExpectedUnknown on error rather than failing the migration.
func (p *Paginator) Total(ctx context.Context) int64 {
	count, err := p.source.Count(ctx, p.collection)
	if err != nil {
		return ExpectedUnknown
	}
	return count
}
