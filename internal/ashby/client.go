// Package ashby is a client for the applicant tracking system's RPC-style API.
package ashby

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production API host
const DefaultBaseURL = "https://api.ashbyhq.com"

// DefaultTimeout bounds every request to the ATS
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned when no API key is available
var ErrNotConfigured = errors.New("ATS integration not configured")

// Job is an entry of job.list
type Job struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	LocationName   string `json:"locationName,omitempty"`
}

// JobInfo is the detail returned by job.info
type JobInfo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DescriptionHTML  string `json:"descriptionHtml,omitempty"`
	DescriptionPlain string `json:"descriptionPlain,omitempty"`
}

// Text returns the richest description the ATS returned
func (j *JobInfo) Text() string {
	for _, d := range []string{j.Description, j.DescriptionPlain, j.DescriptionHTML} {
		if strings.TrimSpace(d) != "" {
			return d
		}
	}
	return ""
}

// FeedbackForm is an interviewer scorecard definition
type FeedbackForm struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	IsArchived bool   `json:"isArchived"`
}

// StageRequest describes an interview stage to create on a job
type StageRequest struct {
	JobID           string `json:"jobId"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
}

// APIError is returned for transport-level failures and for responses with success=false
type APIError struct {
	Endpoint   string
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("Ashby API error: %s: %s", e.Endpoint, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("Ashby API error: %d (%s)", e.StatusCode, e.Endpoint)
}

// Client authenticates with HTTP basic auth using the API key as the username
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// ListJobs returns every job regardless of status
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.call(ctx, "job.list", map[string]any{}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns job detail including the description
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	var info JobInfo
	if err := c.call(ctx, "job.info", map[string]string{"jobId": jobID}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateInterviewStage adds a stage to the job's interview plan and returns its id
func (c *Client) CreateInterviewStage(ctx context.Context, req StageRequest) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "interviewStage.create", req, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// LinkForm attaches a feedback form to a job
func (c *Client) LinkForm(ctx context.Context, jobID, formID string) error {
	body := map[string]string{"jobId": jobID, "feedbackFormDefinitionId": formID}
	return c.call(ctx, "job.linkFeedbackForm", body, nil)
}

// ListFeedbackForms returns the feedback form definitions, archived ones excluded
func (c *Client) ListFeedbackForms(ctx context.Context) ([]FeedbackForm, error) {
	var forms []FeedbackForm
	if err := c.call(ctx, "feedbackFormDefinition.list", map[string]any{}, &forms); err != nil {
		return nil, err
	}
	active := forms[:0]
	for _, f := range forms {
		if !f.IsArchived {
			active = append(active, f)
		}
	}
	return active, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Results json.RawMessage `json:"results"`
	Errors  []string        `json:"errors"`
}

func (c *Client) call(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Ashby: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if !env.Success {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Messages: env.Errors}
	}
	if out == nil || len(env.Results) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Results, out); err != nil {
		return fmt.Errorf("failed to decode %s results: %w", endpoint, err)
	}
	return nil
}
