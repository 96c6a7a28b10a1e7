// Package github reads issues from one repository and handles GitHub App
// authentication.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Issue is the slice of the GitHub issue payload this tool cares about.
type Issue struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Labels  []Label `json:"labels"`
	HTMLURL string  `json:"html_url"`
}

// Label is a GitHub issue label.
type Label struct {
	Name string `json:"name"`
}

// LabelNames returns the issue's label names in API order.
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads issues from a single repository via the REST API.
type Client struct {
	baseURL    string
	repository string
	token      string
	httpClient HTTPClient
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sets a custom base URL for the GitHub API (useful for testing
// and GitHub Enterprise).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a client for the given owner/name repository. The token
// may be empty; ListOpenIssues then fails and the caller degrades to an
// empty list.
func NewClient(repository, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    "https://api.github.com",
		repository: repository,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListOpenIssues retrieves the currently open issues of the repository.
func (c *Client) ListOpenIssues(ctx context.Context) ([]Issue, error) {
	if c.token == "" {
		return nil, fmt.Errorf("no GitHub token configured")
	}

	url := fmt.Sprintf("%s/repos/%s/issues?state=open", c.baseURL, c.repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var issues []Issue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return issues, nil
}
