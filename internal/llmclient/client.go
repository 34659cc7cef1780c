// Package llmclient forwards single request/response round-trips to a
// running llama-server. One request per call, no retries; a non-200
// status is returned as a RequestFailed outcome, never a panic.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// RequestError is the classified failure outcome for any non-200
// response: the numeric status plus the raw body for the caller to log.
type RequestError struct {
	Status int
	Body   string
}

func (e RequestError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// IsRequestFailed reports whether err is a non-200 server response.
func IsRequestFailed(err error) bool {
	_, ok := err.(RequestError)
	return ok
}

// Client talks to one llama-server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a client for baseURL. The HTTP client carries no
// overall timeout; callers bound requests through their context, with
// connectTimeout applying to dialing only.
func New(baseURL string, connectTimeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return RequestError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Completion posts a text-generation request to /completion.
func (c *Client) Completion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var out CompletionResponse
	err := c.do(ctx, http.MethodPost, "/completion", req, &out)
	return out, err
}

// Chat posts a chat request to the OpenAI-compatible endpoint and
// returns the first choice's message content.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var out ChatResponse
	err := c.do(ctx, http.MethodPost, "/v1/chat/completions", req, &out)
	return out, err
}

// Embedding posts text to /embedding and returns the vector.
func (c *Client) Embedding(ctx context.Context, text string) ([]float64, error) {
	var out embeddingResponse
	if err := c.do(ctx, http.MethodPost, "/embedding", embeddingRequest{Content: text}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// Tokenize posts text to /tokenize and returns token ids.
func (c *Client) Tokenize(ctx context.Context, text string) ([]int, error) {
	var out tokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/tokenize", tokenizeRequest{Content: text}, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

// Detokenize posts token ids to /detokenize and returns the text.
func (c *Client) Detokenize(ctx context.Context, tokens []int) (string, error) {
	var out detokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/detokenize", detokenizeRequest{Tokens: tokens}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// Health fetches /health and returns the raw body.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return string(out), nil
}

// Props fetches /props and returns the raw JSON document.
func (c *Client) Props(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/props", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
