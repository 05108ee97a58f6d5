// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-hclog"
)

const maxResponseSize = 1 << 20

// Client calls one resource server with an authenticated Transport.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  hclog.Logger
}

// NewClient creates a Client for the resource server at baseURL.
//
// Supported options:
//   - WithLogger
//   - WithAccount
//   - WithBaseTransport
//   - WithHTTPClient
//   - WithTimeout
func NewClient(baseURL string, fetcher *token.Fetcher, opt ...Option) (*Client, error) {
	const op = "NewClient"
	if fetcher == nil {
		return nil, fmt.Errorf("%s: fetcher is nil: %w", op, ErrNilParameter)
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse base url: %w", op, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be an absolute http(s) url: %w", op, baseURL, ErrInvalidParameter)
	}
	opts := getClientOpts(opt...)
	return &Client{
		baseURL: u,
		http:    &http.Client{Transport: newTransport(fetcher, opts.transportOptions)},
		timeout: opts.withTimeout,
		logger:  opts.withLogger.Named("resource").With("base_url", u.Redacted()),
	}, nil
}

// HTTPClient returns the authenticated http client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// URL returns the base url joined with path.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL.String()
	}
	return c.baseURL.JoinPath(path).String()
}

// Get sends a GET for path, relative to the base url, and returns the
// response body. Non-2xx responses are returned as *StatusError.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Do sends a request for path, relative to the base url, and returns the
// response body. Non-2xx responses are returned as *StatusError. A body is
// sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	const op = "Client.Do"
	if ctx == nil {
		return nil, fmt.Errorf("%s: context is nil: %w", op, ErrNilParameter)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	target := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("request failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%s: %w", op, &StatusError{StatusCode: resp.StatusCode, Body: raw})
	}
	return raw, nil
}
