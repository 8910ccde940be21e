package migrate

import (
	"context"
	"fmt"
	"testing"
)

func TestPaginatorExactPageCount(t *testing.T) {
	cases := []struct {
		n, pageSize int
		wantPages   int
		wantLast    int
	}{
		{10, 3, 4, 1},
		{9, 3, 3, 3},
		{1, 5, 1, 1},
		{5, 2, 3, 1},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d_p=%d", tc.n, tc.pageSize), func(t *testing.T) {
			source := sourceWithRecords(tc.n, 2)
			paginator := NewPaginator(source, "Docs", tc.pageSize, 0)
			ctx := context.Background()

			seen := make(map[string]struct{})
			pages := 0
			lastLen := 0
			for {
				records, err := paginator.Next(ctx)
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if len(records) == 0 {
					break
				}
				pages++
				lastLen = len(records)
				for _, rec := range records {
					if _, dup := seen[rec.ID]; dup {
						t.Fatalf("record %s returned twice", rec.ID)
					}
					seen[rec.ID] = struct{}{}
				}
			}

			if pages != tc.wantPages {
				t.Errorf("pages = %d, want %d", pages, tc.wantPages)
			}
			if lastLen != tc.wantLast {
				t.Errorf("last page length = %d, want %d", lastLen, tc.wantLast)
			}
			if len(seen) != tc.n {
				t.Errorf("unique records = %d, want %d", len(seen), tc.n)
			}
		})
	}
}

func TestPaginatorLimit(t *testing.T) {
	source := sourceWithRecords(10, 2)
	paginator := NewPaginator(source, "Docs", 4, 6)
	ctx := context.Background()

	var total int
	for {
		records, err := paginator.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(records) == 0 {
			break
		}
		total += len(records)
	}

	if total != 6 {
		t.Errorf("total = %d, want exactly the limit of 6", total)
	}
	if paginator.Fetched() != 6 {
		t.Errorf("Fetched() = %d, want 6", paginator.Fetched())
	}
}

func TestPaginatorEmptyCollection(t *testing.T) {
	paginator := NewPaginator(&fakeSource{}, "Docs", 4, 0)

	records, err := paginator.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if !paginator.Done() {
		t.Error("empty collection should mark the paginator done")
	}
}

func TestPaginatorTotalFallsBackToUnknown(t *testing.T) {
	source := sourceWithRecords(3, 2)
	source.countErr = fmt.Errorf("aggregate unavailable")
	paginator := NewPaginator(source, "Docs", 2, 0)

	if total := paginator.Total(context.Background()); total != ExpectedUnknown {
		t.Errorf("Total = %d, want ExpectedUnknown", total)
	}
}
