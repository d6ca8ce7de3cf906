// Package client is the HTTP client training scripts embed to talk to
// the batch size optimizer: register once, then report each trial's
// time and energy and run the next trial at the returned batch size.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"batch-size-optimizer/core/models"
	"batch-size-optimizer/core/optimizer"
)

// Client talks to a batch size optimizer server
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterJob registers a job and returns the first batch size to try
func (c *Client) RegisterJob(ctx context.Context, cfg models.JobConfig) (*models.JobHandle, error) {
	var handle models.JobHandle
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", cfg, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

// ReportTrial reports one trial outcome and returns the decision.
// Workers of a data-parallel job may all call this for the same
// sequence number; each receives the identical decision.
func (c *Client) ReportTrial(ctx context.Context, report models.TrialReport) (*models.Decision, error) {
	path := fmt.Sprintf("/v1/jobs/%s/trials", report.JobID)
	var decision models.Decision
	if err := c.do(ctx, http.MethodPost, path, report, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// GetJob returns the server's snapshot of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (*models.JobSnapshot, error) {
	var snap models.JobSnapshot
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListTrials returns the job's trial log
func (c *Client) ListTrials(ctx context.Context, jobID string) ([]models.Trial, error) {
	var trials []models.Trial
	path := fmt.Sprintf("/v1/jobs/%s/trials", jobID)
	if err := c.do(ctx, http.MethodGet, path, nil, &trials); err != nil {
		return nil, err
	}
	return trials, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Server errors come back in the structured envelope; surface
		// them as optimizer errors so callers can switch on the code.
		var envelope struct {
			Error *optimizer.Error `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
