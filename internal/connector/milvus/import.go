package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nucleus/vector-migrate/internal/endpoint"
)

// StartImport submits a bulk-import job over staged object-store files and
// returns the job id to poll.
func (c *Client) StartImport(ctx context.Context, collection string, files []string) (string, error) {
	groups := make([][]string, 0, len(files))
	for _, f := range files {
		groups = append(groups, []string{f})
	}
	data, err := c.call(ctx, "/v2/vectordb/jobs/import/create", map[string]any{
		"collectionName": collection,
		"files":          groups,
	})
	if err != nil {
		return "", err
	}
	obj, _ := data.(map[string]any)
	jobID, _ := obj["jobId"].(string)
	if jobID == "" {
		return "", endpoint.WrapError(endpoint.CodeImportFailed, false,
			fmt.Errorf("import create response missing jobId for %s", collection))
	}
	return jobID, nil
}

// ImportProgress reports the state of a previously submitted import job.
func (c *Client) ImportProgress(ctx context.Context, jobID string) (*endpoint.ImportStatus, error) {
	data, err := c.call(ctx, "/v2/vectordb/jobs/import/describe", map[string]any{
		"jobId": jobID,
	})
	if err != nil {
		return nil, err
	}
	obj, _ := data.(map[string]any)

	status := &endpoint.ImportStatus{
		JobID: jobID,
		State: normalizeImportState(stringOf(obj["state"])),
	}
	status.Progress = intOf(obj["progress"])
	status.ImportedRows = int64Of(obj["importedRows"])
	status.Reason = stringOf(obj["reason"])
	return status, nil
}

// normalizeImportState maps provider state names onto the shared job states.
func normalizeImportState(state string) string {
	switch state {
	case "Pending", "ImportPending":
		return endpoint.ImportStatePending
	case "InProgress", "Importing", "ImportRunning":
		return endpoint.ImportStateRunning
	case "Completed", "ImportCompleted":
		return endpoint.ImportStateCompleted
	case "Failed", "ImportFailed", "Cancelled":
		return endpoint.ImportStateFailed
	}
	return endpoint.ImportStateRunning
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
