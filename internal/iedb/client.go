// Package iedb provides a thin client for the IEDB NextGen Tools pipeline API.
// It submits prediction pipelines and polls result documents; interpretation
// of the returned tables lives in the results package.
package iedb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public NextGen Tools API endpoint.
const DefaultBaseURL = "https://api-nextgen-tools.iedb.org/api/v1"

// Client talks to the NextGen Tools pipeline API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given API base URL.
// An empty baseURL selects the public endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts a pipeline request and returns the handle used for polling.
func (c *Client) Submit(ctx context.Context, req PipelineRequest) (JobHandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return JobHandle{}, &SubmissionError{Err: fmt.Errorf("marshal pipeline: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pipeline", bytes.NewReader(body))
	if err != nil {
		return JobHandle{}, &SubmissionError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return JobHandle{}, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return JobHandle{}, &SubmissionError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return JobHandle{}, &SubmissionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("pipeline request failed (%s): %s", resp.Status, string(respBody)),
		}
	}

	var sr submitResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return JobHandle{}, &SubmissionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if sr.ResultID == "" && sr.ResultsURI == "" {
		return JobHandle{}, &SubmissionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("pipeline submitted but no results handle was returned"),
		}
	}

	return JobHandle{
		ResultID:    sr.ResultID,
		ResultsURI:  sr.ResultsURI,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Poll issues a single GET for the job's current result document.
func (c *Client) Poll(ctx context.Context, handle JobHandle) (*ResultEnvelope, error) {
	url := handle.ResultsURI
	if url == "" {
		url = fmt.Sprintf("%s/results/%s", c.baseURL, handle.ResultID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &PollError{Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &PollError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PollError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &PollError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("polling failed (%s): %s", resp.Status, string(respBody)),
		}
	}

	var env ResultEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &PollError{Err: fmt.Errorf("decode envelope: %w", err)}
	}
	return &env, nil
}

type submitResponse struct {
	ResultID   string `json:"result_id"`
	ResultsURI string `json:"results_uri"`
}
