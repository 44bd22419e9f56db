// pkg/api/api.go

// Package api provides the client for submitting verification run results
// to an HTTP result collector, and the wire types collectors receive.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

// Version is stamped into submission envelopes. The CLI overwrites it at
// startup with its build version.
var Version = "dev"

const (
	toolName       = "uiverifier"
	defaultTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of a rejection body is kept for the
	// error message
	maxErrorBodyBytes = 512
)

// Client submits run results to a collector endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
	authToken  string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds a set of headers to every request
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithAuthToken sends the token as a bearer credential on every request
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a collector client for the given endpoint
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("collector endpoint is required")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid collector endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("collector endpoint must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("collector endpoint must include a host")
	}

	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// SubmitResult posts one run result to the collector
func (c *Client) SubmitResult(ctx context.Context, result *types.RunResult) (*SubmitResponse, error) {
	if result == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}

	envelope := ResultEnvelope{
		Tool:        toolName,
		Version:     Version,
		SubmittedAt: time.Now().UTC(),
		Run:         result,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", toolName+"/"+Version)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       readErrorBody(resp.Body),
		}
	}

	response := &SubmitResponse{Accepted: true}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil && err != io.EOF {
		// Collector accepted the run but replied with a body the client
		// cannot parse; the submission itself succeeded
		return &SubmitResponse{Accepted: true}, nil
	}

	return response, nil
}

// readErrorBody reads a bounded prefix of a rejection body
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
