// ABOUTME: HTTP client for the counter API (today, history, set)
// ABOUTME: Maps non-2xx responses to APIError so callers can match on status

package client

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

// ErrUnauthorized matches (via errors.Is) an APIError with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrUnauthorized and this is a 401.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Today is the current day's counters.
type Today struct {
	Count      uint32 `json:"count"`
	RightCount uint32 `json:"right_count"`
}

// Day is one row of history.
type Day struct {
	Day        string `json:"day"`
	Count      uint32 `json:"count"`
	RightCount uint32 `json:"right_count"`
}

type setRequest struct {
	Day        string  `json:"day"`
	Count      uint32  `json:"count"`
	RightCount uint32  `json:"right_count"`
	Secret     *string `json:"secret,omitempty"`
}

// Client talks to one absolutelyright server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	secret     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSecret sets the shared secret sent with Set.
func WithSecret(secret string) Option {
	return func(c *Client) { c.secret = secret }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today fetches the current UTC day's counters.
func (c *Client) Today(ctx context.Context) (*Today, error) {
	var out Today
	if err := c.do(ctx, http.MethodGet, "/api/today", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches every stored day in ascending order.
func (c *Client) History(ctx context.Context) ([]Day, error) {
	var out []Day
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Day{}
	}
	return out, nil
}

// Set overwrites the counters for day.
func (c *Client) Set(ctx context.Context, day string, count, rightCount uint32) error {
	req := setRequest{Day: day, Count: count, RightCount: rightCount}
	if c.secret != "" {
		req.Secret = &c.secret
	}
	var ack string
	return c.do(ctx, http.MethodPost, "/api/set", req, &ack)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
