// Package client provides HTTP access to a running herald daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"herald/internal/api"
	"herald/internal/campaign"
	"herald/internal/report"
	"herald/internal/services"
)

// Client talks to the daemon API over HTTP.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New builds a client for the daemon bound at addr (host:port or full URL).
func New(addr, token string) *Client {
	base := strings.TrimSpace(addr)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit enqueues a campaign and returns the accepted job snapshot.
func (c *Client) Submit(ctx context.Context, submission campaign.Submission) (api.JobSummary, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/campaigns", submission, &resp)
	return resp.Job, err
}

// Status polls one job.
func (c *Client) Status(ctx context.Context, jobID string) (api.JobStatusResponse, error) {
	var resp api.JobStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// List returns jobs, optionally filtered by status.
func (c *Client) List(ctx context.Context, statuses ...string) ([]api.JobSummary, error) {
	path := "/api/campaigns"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var resp api.JobListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Jobs, err
}

// Approvals returns the review queue for an event.
func (c *Client) Approvals(ctx context.Context, event string) ([]api.ApprovalRecord, error) {
	var resp api.ApprovalListResponse
	err := c.do(ctx, http.MethodGet, "/api/approvals/"+url.PathEscape(event), nil, &resp)
	return resp.Records, err
}

// UpdateApproval records a review decision for one participant. A non-nil
// message replaces the drafted text.
func (c *Client) UpdateApproval(ctx context.Context, event, participant, status string, message *string) (api.ApprovalRecord, error) {
	var resp api.ApprovalUpdateResponse
	path := "/api/approvals/" + url.PathEscape(event) + "/" + url.PathEscape(participant)
	err := c.do(ctx, http.MethodPut, path, api.ApprovalUpdateRequest{Status: status, Message: message}, &resp)
	return resp.Record, err
}

// SendApproved dispatches approved messages for an event.
func (c *Client) SendApproved(ctx context.Context, event string) (int64, error) {
	var resp api.SendResponse
	err := c.do(ctx, http.MethodPost, "/api/send/"+url.PathEscape(event), nil, &resp)
	return resp.Sent, err
}

// Report fetches the post-campaign summary for a completed job.
func (c *Client) Report(ctx context.Context, jobID string) (report.CampaignReport, error) {
	var resp report.CampaignReport
	err := c.do(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// Health reports daemon runtime information.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", "client", "daemon address is not configured", nil)
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, "", "client", "encode request", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "", "client", "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternal, "", "client",
			fmt.Sprintf("daemon unreachable at %s", c.baseURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, "", "client", "decode response", err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	message := fmt.Sprintf("daemon returned %s", resp.Status)
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		message = body.Error
	}

	marker := services.ErrExternal
	switch resp.StatusCode {
	case http.StatusBadRequest:
		marker = services.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		marker = services.ErrConfiguration
	case http.StatusNotFound:
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, "", "client", message, nil)
}
