// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Doer captures the subset of *http.Client the delivery channel relies on, so
// tests can substitute a fake transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultMaxResponseBytes bounds PostJSON response bodies unless
// SetMaxResponseBytes says otherwise.
const DefaultMaxResponseBytes int64 = 1 << 20

// ErrResponseTooLarge is returned when a response body exceeds the limit.
var ErrResponseTooLarge = errors.New("response body too large")

// Client wraps an http.Client with a fixed timeout and user agent.
type Client struct {
	httpClient       Doer
	userAgent        string
	maxResponseBytes int64
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:        userAgent,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
}

// NewClientWithDoer uses doer as the transport.
func NewClientWithDoer(doer Doer, userAgent string) *Client {
	return &Client{httpClient: doer, userAgent: userAgent, maxResponseBytes: DefaultMaxResponseBytes}
}

// SetMaxResponseBytes changes the response body limit. n <= 0 is ignored.
func (c *Client) SetMaxResponseBytes(n int64) {
	if n > 0 {
		c.maxResponseBytes = n
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Result is a fully read downstream response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// PostJSON sends body to url with Content-Type application/json and reads the
// whole response. A non-nil error means the exchange did not complete; any
// status code the server returned is reported through Result.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(data)) > c.maxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxResponseBytes)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}
