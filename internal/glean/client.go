// Package glean is a client for the enterprise search service used to look up
// people, their org chart, and the recruiting assistant agent.
package glean

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

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request to the search service
const DefaultTimeout = 30 * time.Second

// RecruitingAgentID is the agent answering recruiting process questions
const RecruitingAgentID = "058a5f966a1345aeb415ec5482e85594"

// Person is a directory record
type Person struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Title      string `json:"title"`
	Department string `json:"department"`
}

// OrgChart is a person with their direct reports and cross-functional partners
type OrgChart struct {
	Person          Person   `json:"person"`
	DirectReports   []Person `json:"directReports"`
	CrossFunctional []Person `json:"crossFunctional"`
}

// APIError is returned for non-2xx responses
type APIError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Glean API error: %s (%s)", e.Status, e.Endpoint)
}

// Client talks to the search service with a static bearer token
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. The token is sent as a bearer credential.
func NewClient(ctx context.Context, baseURL, token string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("glean base URL is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("glean token is required")
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = DefaultTimeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Token picks the bearer token over the API key when both are set
func Token(bearerToken, apiKey string) string {
	if bearerToken != "" {
		return bearerToken
	}
	return apiKey
}

// SearchPerson returns people matching name, best match first
func (c *Client) SearchPerson(ctx context.Context, name string) ([]Person, error) {
	body := map[string]any{
		"query":       name,
		"pageSize":    10,
		"datasources": []string{"PEOPLE"},
		"requestOptions": map[string]any{
			"datasourceFilter": []string{"PEOPLE"},
		},
	}

	var resp struct {
		Results []Person `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to search for person %q: %w", name, err)
	}
	return resp.Results, nil
}

// GetOrgChart returns the org chart around personID
func (c *Client) GetOrgChart(ctx context.Context, personID string) (*OrgChart, error) {
	var chart OrgChart
	endpoint := "/api/orgchart/person/" + url.PathEscape(personID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &chart); err != nil {
		return nil, fmt.Errorf("failed to get org chart for person %s: %w", personID, err)
	}
	return &chart, nil
}

// QueryAgent asks an agent a question and returns its answer text
func (c *Client) QueryAgent(ctx context.Context, agentID, question string) (string, error) {
	var resp struct {
		Answer  string `json:"answer"`
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	body := map[string]string{"agentId": agentID, "question": question}
	if err := c.do(ctx, http.MethodPost, "/chat/query", body, &resp); err != nil {
		return "", fmt.Errorf("agent query failed: %w", err)
	}

	for _, answer := range []string{resp.Answer, resp.Text, resp.Content} {
		if strings.TrimSpace(answer) != "" {
			return answer, nil
		}
	}
	return "", fmt.Errorf("no answer returned from agent %s", agentID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Glean: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
