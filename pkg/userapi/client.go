// Package userapi is the HTTP RecordService used by the edit engine.
//
// Wire shape:
//
//	GET  {base}/users        -> []Record
//	PUT  {base}/users/{id}   body Record -> Record
//	PUT  {base}/users/bulk   body {"<id>": Record} -> {"<id>": Record}
package userapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/usergrid/pkg/records"
)

// RequestIDHeader carries a per-request id for log correlation.
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout applies when the caller does not set one.
const DefaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("userapi: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("userapi: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to a users REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAll lists every user.
func (c *Client) FetchAll(ctx context.Context) ([]records.Record, error) {
	var list []records.Record
	if err := c.do(ctx, http.MethodGet, "/users", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Update replaces one user, keyed by r.ID.
func (c *Client) Update(ctx context.Context, r records.Record) (records.Record, error) {
	var saved records.Record
	if err := c.do(ctx, http.MethodPut, "/users/"+strconv.Itoa(r.ID), r, &saved); err != nil {
		return records.Record{}, err
	}
	return saved, nil
}

// UpdateBulk replaces many users in one call. JSON object keys are the ids.
func (c *Client) UpdateBulk(ctx context.Context, users map[int]records.Record) (map[int]records.Record, error) {
	saved := make(map[int]records.Record, len(users))
	if err := c.do(ctx, http.MethodPut, "/users/bulk", users, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("userapi: marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("userapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("userapi: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("userapi: decode %s %s: %w", method, url, err)
	}
	return nil
}
