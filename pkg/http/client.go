package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const MethodGet = http.MethodGet

const defaultClientTimeout = 30 * time.Second

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// RequestOptions describes an outbound request.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
}

// Client is a thin JSON-oriented HTTP client used for upstream fetches.
type Client struct {
	timeout time.Duration
	client  *http.Client
}

// NewClient creates an HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: defaultClientTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// SendAndParse performs the request and decodes the response body into dest.
// A *[]byte dest receives the raw body; anything else is decoded as JSON.
// Non-2xx statuses are returned as errors carrying the body.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}

	if raw, ok := dest.(*[]byte); ok {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		*raw = body
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
