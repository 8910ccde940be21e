// Package report renders run statistics into three static artifacts: a JSON
// dump of the full run state, an aligned plain-text summary, and a styled
// HTML page. All three are pure projections; nothing here mutates run state.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nucleus/vector-migrate/internal/migrate"
)

// Paths names the artifacts produced for one run.
type Paths struct {
	JSON    string
	Summary string
	HTML    string
}

// WriteAll renders all three report artifacts into dir, named by run ID.
// Each artifact is written independently; the first failure stops the set.
func WriteAll(dir string, run *migrate.RunStatistics) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create report dir: %w", err)
	}

	paths := Paths{
		JSON:    filepath.Join(dir, run.RunID+"_report.json"),
		Summary: filepath.Join(dir, run.RunID+"_summary.txt"),
		HTML:    filepath.Join(dir, run.RunID+"_report.html"),
	}

	if err := WriteJSON(paths.JSON, run); err != nil {
		return paths, err
	}
	if err := WriteSummary(paths.Summary, run); err != nil {
		return paths, err
	}
	if err := WriteHTML(paths.HTML, run); err != nil {
		return paths, err
	}
	return paths, nil
}

// WriteJSON dumps the complete run state as indented JSON.
func WriteJSON(path string, run *migrate.RunStatistics) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteSummary renders the aligned plain-text table.
func WriteSummary(path string, run *migrate.RunStatistics) error {
	return os.WriteFile(path, []byte(RenderSummary(run)), 0o644)
}

// RenderSummary builds the text summary: a header block, one row per
// collection, and status totals.
func RenderSummary(run *migrate.RunStatistics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Migration Run %s\n", run.RunID)
	fmt.Fprintf(&b, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished: %s (%s)\n", run.FinishedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(&b, "Batch size: %d", run.BatchSize)
	if run.Limit > 0 {
		fmt.Fprintf(&b, "  Limit: %d", run.Limit)
	}
	b.WriteString("\n\n")

	nameWidth := len("COLLECTION")
	for _, c := range run.Collections {
		if len(c.Name) > nameWidth {
			nameWidth = len(c.Name)
		}
	}

	fmt.Fprintf(&b, "%-*s  %-11s  %9s  %9s  %7s  %8s\n",
		nameWidth, "COLLECTION", "STATUS", "MIGRATED", "EXPECTED", "DROPPED", "VERIFIED")
	for _, c := range run.Collections {
		expected := "?"
		if c.ExpectedCount != migrate.ExpectedUnknown {
			expected = fmt.Sprintf("%d", c.ExpectedCount)
		}
		verified := "no"
		if c.CountVerified {
			verified = "yes"
		}
		fmt.Fprintf(&b, "%-*s  %-11s  %9d  %9s  %7d  %8s\n",
			nameWidth, c.Name, c.Status, c.Migrated, expected, c.Dropped, verified)
		if c.Error != "" {
			fmt.Fprintf(&b, "%-*s  error: %s\n", nameWidth, "", c.Error)
		}
	}

	counts := run.CountByStatus()
	fmt.Fprintf(&b, "\nTotal migrated: %d\n", run.TotalMigrated())
	fmt.Fprintf(&b, "Collections: %d success, %d skipped, %d failed\n",
		counts[migrate.StatusSuccess], counts[migrate.StatusSkipped], counts[migrate.StatusFailed])
	return b.String()
}

// WriteHTML renders the styled static report page.
func WriteHTML(path string, run *migrate.RunStatistics) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()

	if err := htmlReport.Execute(f, htmlData(run)); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

type htmlRow struct {
	Name     string
	Status   string
	Migrated int64
	Expected string
	Dropped  int64
	Batches  int
	Duration string
	Verified string
	Error    string
}

type htmlView struct {
	RunID    string
	Started  string
	Finished string
	Duration string
	Total    int64
	Success  int
	Skipped  int
	Failed   int
	Rows     []htmlRow
}

func htmlData(run *migrate.RunStatistics) htmlView {
	counts := run.CountByStatus()
	view := htmlView{
		RunID:   run.RunID,
		Started: run.StartedAt.Format(time.RFC3339),
		Total:   run.TotalMigrated(),
		Success: counts[migrate.StatusSuccess],
		Skipped: counts[migrate.StatusSkipped],
		Failed:  counts[migrate.StatusFailed],
	}
	if !run.FinishedAt.IsZero() {
		view.Finished = run.FinishedAt.Format(time.RFC3339)
		view.Duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
	}
	for _, c := range run.Collections {
		row := htmlRow{
			Name:     c.Name,
			Status:   c.Status,
			Migrated: c.Migrated,
			Expected: "?",
			Dropped:  c.Dropped,
			Batches:  c.Batches,
			Duration: c.Duration().Round(time.Second).String(),
			Verified: "no",
			Error:    c.Error,
		}
		if c.ExpectedCount != migrate.ExpectedUnknown {
			row.Expected = fmt.Sprintf("%d", c.ExpectedCount)
		}
		if c.CountVerified {
			row.Verified = "yes"
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Migration Report {{.RunID}}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; color: #1a1a2e; }
  h1 { font-size: 1.3rem; }
  .meta { color: #555; margin-bottom: 1.5rem; }
  .totals span { display: inline-block; margin-right: 1.5rem; font-weight: 600; }
  table { border-collapse: collapse; margin-top: 1rem; width: 100%; }
  th, td { padding: 0.4rem 0.8rem; text-align: left; border-bottom: 1px solid #ddd; }
  th { background: #f4f4f8; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .status-success { color: #198754; font-weight: 600; }
  .status-skipped { color: #6c757d; }
  .status-failed { color: #dc3545; font-weight: 600; }
  .error { color: #dc3545; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>Migration Report</h1>
<div class="meta">
  Run {{.RunID}}<br>
  Started {{.Started}}{{if .Finished}} &mdash; finished {{.Finished}} ({{.Duration}}){{end}}
</div>
<div class="totals">
  <span>{{.Total}} documents migrated</span>
  <span class="status-success">{{.Success}} success</span>
  <span class="status-skipped">{{.Skipped}} skipped</span>
  <span class="status-failed">{{.Failed}} failed</span>
</div>
<table>
  <tr>
    <th>Collection</th><th>Status</th><th>Migrated</th><th>Expected</th>
    <th>Dropped</th><th>Batches</th><th>Duration</th><th>Verified</th>
  </tr>
  {{range .Rows}}
  <tr>
    <td>{{.Name}}</td>
    <td class="status-{{.Status}}">{{.Status}}</td>
    <td class="num">{{.Migrated}}</td>
    <td class="num">{{.Expected}}</td>
    <td class="num">{{.Dropped}}</td>
    <td class="num">{{.Batches}}</td>
    <td class="num">{{.Duration}}</td>
    <td>{{.Verified}}</td>
  </tr>
  {{if .Error}}<tr><td colspan="8" class="error">{{.Error}}</td></tr>{{end}}
  {{end}}
</table>
</body>
</html>
`))
