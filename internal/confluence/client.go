package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds wiki requests
const DefaultTimeout = 20 * time.Second

// Client reads pages from the wiki REST API with basic auth
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

// NewClient creates a wiki client
func NewClient(baseURL, email, token string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("confluence base URL is required")
	}
	if email == "" || token == "" {
		return nil, fmt.Errorf("confluence email and API token are required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// PageError reports a failed page read
type PageError struct {
	PageID     string
	StatusCode int
	Cause      error
}

func (e *PageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("confluence page %s: %v", e.PageID, e.Cause)
	}
	return fmt.Sprintf("confluence page %s: HTTP status %d", e.PageID, e.StatusCode)
}

func (e *PageError) Unwrap() error {
	return e.Cause
}

// PageText fetches a page body in storage format and flattens it to text
func (c *Client) PageText(ctx context.Context, pageID string) (string, error) {
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/%s?expand=body.storage", c.baseURL, url.PathEscape(pageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &PageError{PageID: pageID, Cause: err}
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &PageError{PageID: pageID, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &PageError{PageID: pageID, StatusCode: resp.StatusCode}
	}

	var page struct {
		Title string `json:"title"`
		Body  struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", &PageError{PageID: pageID, Cause: fmt.Errorf("failed to decode page: %w", err)}
	}

	return StorageToText(page.Body.Storage.Value)
}

// StorageToText flattens wiki storage-format HTML into headed, bulleted text
func StorageToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page body: %w", err)
	}
	doc.Find("script, style").Remove()

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li").Each(func(_ int, s *goquery.Selection) {
		// nested lists are emitted by their own li
		if goquery.NodeName(s) == "p" && s.ParentsFiltered("li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(ownText(s)), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "li":
			lines = append(lines, "• "+text)
		case "p":
			lines = append(lines, text)
		default:
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, strings.ToUpper(text)+":")
		}
	})
	return strings.Join(lines, "\n"), nil
}

// ownText is the selection's text without nested list items
func ownText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("ul, ol").Remove()
	return clone.Text()
}
