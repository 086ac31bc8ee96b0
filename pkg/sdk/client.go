// Package fundfaq is the Go client for the fundfaq HTTP API.
package fundfaq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client is the fundfaq SDK entry point.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a fundfaq Client for the given server base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("fundfaq: base URL required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// AskOption tunes a single Ask call.
type AskOption func(*askRequest)

// WithTopK overrides the server's default number of retrieved chunks.
func WithTopK(topK int) AskOption {
	return func(r *askRequest) {
		if topK > 0 {
			r.TopK = &topK
		}
	}
}

// WithFundName narrows retrieval to one scheme.
func WithFundName(name string) AskOption {
	return func(r *askRequest) {
		if name != "" {
			r.FundName = &name
		}
	}
}

// Ask submits a question.
func (c *Client) Ask(ctx context.Context, question string, opts ...AskOption) (Answer, error) {
	body := askRequest{Question: question}
	for _, o := range opts {
		o(&body)
	}

	var resp Answer
	if err := c.do(ctx, http.MethodPost, "/v1/query", body, &resp); err != nil {
		return Answer{}, err
	}
	return resp, nil
}

// Funds lists the schemes the server can answer about.
func (c *Client) Funds(ctx context.Context) ([]string, error) {
	var resp fundsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/funds", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Funds, nil
}

// Reindex triggers a corpus rebuild and reports the new index size.
func (c *Client) Reindex(ctx context.Context) (ReindexResult, error) {
	var resp ReindexResult
	if err := c.do(ctx, http.MethodPost, "/v1/reindex", nil, &resp); err != nil {
		return ReindexResult{}, err
	}
	return resp, nil
}

// Health reports the aggregated server health. A degraded or unhealthy
// server still returns a report, not an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return Health{}, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("fundfaq: health request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// /health returns the report with a 503 status when unhealthy.
	var resp Health
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return Health{}, fmt.Errorf("fundfaq: decode health response: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fundfaq: %s %s: %w", method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode >= 400 {
		return parseAPIError(httpResp)
	}

	if out != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return fmt.Errorf("fundfaq: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fundfaq: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("fundfaq: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
