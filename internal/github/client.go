package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	clientTimeout  = 30 * time.Second
)

// Client abstracts the GitHub REST API surface the fetcher needs.
type Client interface {
	GetUser(ctx context.Context, username string) (map[string]any, error)
	GetRepositories(ctx context.Context, username string, perPage int, sort string) ([]map[string]any, error)
	// GetReadme returns the raw base64-encoded README content, or ErrNotFound.
	GetReadme(ctx context.Context, owner, repo string) (string, error)
	GetPublicEvents(ctx context.Context, username string) ([]map[string]any, error)
}

// HTTPClient talks to the GitHub REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient constructs a GitHub API client. The token is optional;
// unauthenticated calls work with a much lower rate limit.
func NewHTTPClient(token string) *HTTPClient {
	return &HTTPClient{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// GetUser fetches the core profile attributes for a username.
func (c *HTTPClient) GetUser(ctx context.Context, username string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(username), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRepositories fetches owned repositories for a username.
func (c *HTTPClient) GetRepositories(ctx context.Context, username string, perPage int, sort string) ([]map[string]any, error) {
	if perPage <= 0 {
		perPage = 30
	}
	if sort == "" {
		sort = "pushed"
	}
	path := fmt.Sprintf("/users/%s/repos?per_page=%d&sort=%s&type=owner", url.PathEscape(username), perPage, url.QueryEscape(sort))
	var out []map[string]any
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReadme fetches the README metadata for a repository and returns the
// base64 content field.
func (c *HTTPClient) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/readme"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// GetPublicEvents fetches recent public activity for a username.
func (c *HTTPClient) GetPublicEvents(ctx context.Context, username string) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(username)+"/events/public", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if strings.TrimSpace(c.token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github response %s: decode: %w", path, err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
