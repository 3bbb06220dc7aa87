package controlplane

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// JobSubmitResponse is the REST response to /run and /runsync.
type JobSubmitResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// RunAsync submits a job to an endpoint's queue, returning immediately
// with the job id (spec §6: POST /v2/{endpoint_id}/run).
func (c *Client) RunAsync(ctx context.Context, endpointID string, input any) (JobSubmitResponse, error) {
	var resp JobSubmitResponse
	err := c.Post(ctx, fmt.Sprintf("/v2/%s/run", endpointID), map[string]any{"input": input}, &resp)
	return resp, err
}

// RunSync submits a job and blocks until it completes (spec §6: POST
// /v2/{endpoint_id}/runsync), used by the Queue Stub (C13).
func (c *Client) RunSync(ctx context.Context, endpointID string, input any) (JobSubmitResponse, error) {
	var resp JobSubmitResponse
	err := c.Post(ctx, fmt.Sprintf("/v2/%s/runsync", endpointID), map[string]any{"input": input}, &resp)
	return resp, err
}

// JobStatusResponse is the REST response to /status/{request_id}.
type JobStatusResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	WorkerID string         `json:"workerId,omitempty"`
}

// JobStatus polls job status (spec §6: GET /v2/{endpoint_id}/status/{request_id}).
func (c *Client) JobStatus(ctx context.Context, endpointID, requestID string) (JobStatusResponse, error) {
	var resp JobStatusResponse
	err := c.Get(ctx, fmt.Sprintf("/v2/%s/status/%s", endpointID, requestID), &resp)
	return resp, err
}

// LogsParams filters an endpoint logs query.
type LogsParams struct {
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// LogEntry is one line of an endpoint's logs.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	WorkerID  string    `json:"workerId,omitempty"`
}

// EndpointLogs fetches logs for an endpoint (spec §6: GET
// /v2/{endpoint_id}/logs?from=&to=&page=&pageSize=). Callers typically
// bound ctx to the 4s timeout spec §5 assigns this call.
func (c *Client) EndpointLogs(ctx context.Context, endpointID string, params LogsParams) ([]LogEntry, error) {
	q := url.Values{}
	if !params.From.IsZero() {
		q.Set("from", params.From.Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		q.Set("to", params.To.Format(time.RFC3339))
	}
	if params.Page > 0 {
		q.Set("page", fmt.Sprintf("%d", params.Page))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", fmt.Sprintf("%d", params.PageSize))
	}

	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	path := fmt.Sprintf("/v2/%s/logs", endpointID)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	err := c.Get(ctx, path, &resp)
	return resp.Logs, err
}
