// Package hub talks to the upstream model hub: identifier validation,
// weight downloads through the external downloader tool, and the
// recent/trending catalog queries.
package hub

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

// invalidInputError indicates a malformed hub identifier.
type invalidInputError struct{ id string }

func (e invalidInputError) Error() string {
	return fmt.Sprintf("invalid model id %q: expected author/name", e.id)
}

// ErrInvalidInput constructs an invalidInputError for id.
func ErrInvalidInput(id string) error { return invalidInputError{id: id} }

// IsInvalidInput reports whether err indicates a malformed identifier.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}

// requestError is a non-200 response from the hub API.
type requestError struct {
	status int
	body   string
}

func (e requestError) Error() string {
	return fmt.Sprintf("hub returned %d: %s", e.status, e.body)
}

// ErrRequestFailed constructs a requestError for a non-200 hub response.
func ErrRequestFailed(status int, body string) error {
	return requestError{status: status, body: body}
}

// IsRequestFailed reports whether err is a non-200 hub response.
func IsRequestFailed(err error) bool {
	_, ok := err.(requestError)
	return ok
}

// ValidateModelID checks a hub identifier of form author/name: exactly
// one separator, both parts non-empty, characters restricted to
// [A-Za-z0-9._-].
func ValidateModelID(id string) error {
	parts := strings.Split(id, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ErrInvalidInput(id)
	}
	for _, part := range parts {
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '.' || r == '_' || r == '-':
			default:
				return ErrInvalidInput(id)
			}
		}
	}
	return nil
}

// ModelSummary is one hub search result.
type ModelSummary struct {
	ID           string    `json:"id"`
	Downloads    int64     `json:"downloads"`
	Likes        int64     `json:"likes"`
	LastModified time.Time `json:"lastModified"`
}

// Client queries the hub's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a hub client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Recent lists gguf models sorted by last modification.
func (c *Client) Recent(ctx context.Context, limit int) ([]ModelSummary, error) {
	return c.search(ctx, "lastModified", limit)
}

// Trending lists gguf models sorted by trending score.
func (c *Client) Trending(ctx context.Context, limit int) ([]ModelSummary, error) {
	return c.search(ctx, "trendingScore", limit)
}

func (c *Client) search(ctx context.Context, sort string, limit int) ([]ModelSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("filter", "gguf")
	q.Set("sort", sort)
	q.Set("direction", "-1")
	q.Set("limit", fmt.Sprint(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/models?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode != http.StatusOK {
		return nil, ErrRequestFailed(resp.StatusCode, string(raw))
	}
	var out []ModelSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode hub response: %w", err)
	}
	return out, nil
}
