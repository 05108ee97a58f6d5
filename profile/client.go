// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"context"
	"fmt"

	"github.com/hashicorp/cap-entra/resource"
	"github.com/hashicorp/go-hclog"
)

// DefaultGraphMeEndpoint is the Graph endpoint for the signed in user.
const DefaultGraphMeEndpoint = "https://graph.microsoft.com/v1.0/me"

// Source returns the signed in user's profile.
type Source interface {
	Me(ctx context.Context) (*Profile, error)
}

// Client is a Source backed by a resource server.
type Client struct {
	rc     *resource.Client
	path   string
	logger hclog.Logger
}

var _ Source = (*Client)(nil)

// NewGraphClient returns a Source for a resource client whose base url is
// the Graph me endpoint.
//
// Supported options:
//   - WithLogger
//   - WithPath
func NewGraphClient(rc *resource.Client, opt ...Option) (*Client, error) {
	const op = "NewGraphClient"
	return newClient(op, rc, "", opt...)
}

// NewBackendClient returns a Source for a resource client whose base url is
// the backend api. The profile is read from /me.
//
// Supported options:
//   - WithLogger
//   - WithPath
func NewBackendClient(rc *resource.Client, opt ...Option) (*Client, error) {
	const op = "NewBackendClient"
	return newClient(op, rc, "/me", opt...)
}

func newClient(op string, rc *resource.Client, path string, opt ...Option) (*Client, error) {
	if rc == nil {
		return nil, fmt.Errorf("%s: resource client is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	if opts.withPath != "" {
		path = opts.withPath
	}
	return &Client{
		rc:     rc,
		path:   path,
		logger: opts.withLogger.Named("profile"),
	}, nil
}

// Me implements Source.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	const op = "Client.Me"
	raw, err := c.rc.Get(ctx, c.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := Decode(raw, WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
