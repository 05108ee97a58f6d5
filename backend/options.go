// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultGraphMeEndpoint is the Microsoft Graph profile of the signed in
	// user.
	DefaultGraphMeEndpoint = "https://graph.microsoft.com/v1.0/me"

	// DefaultGraphScope is the delegated permission requested on behalf of
	// the caller.
	DefaultGraphScope = "https://graph.microsoft.com/User.Read"

	// RequestIDHeader carries the request id.
	RequestIDHeader = "X-Request-Id"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type serverOptions struct {
	withLogger          hclog.Logger
	withGraphEndpoint   string
	withGraphScopes     []string
	withHTTPClient      *http.Client
	withRequiredScope   string
	withMaxResponseSize int64
}

func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:          hclog.NewNullLogger(),
		withGraphEndpoint:   DefaultGraphMeEndpoint,
		withGraphScopes:     []string{DefaultGraphScope},
		withHTTPClient:      cleanhttp.DefaultPooledClient(),
		withMaxResponseSize: 1 << 20,
	}
}

func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: NewServer
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithGraphEndpoint overrides DefaultGraphMeEndpoint.
func WithGraphEndpoint(endpoint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && endpoint != "" {
			o.withGraphEndpoint = endpoint
		}
	}
}

// WithGraphScopes overrides the scopes requested on behalf of the caller.
func WithGraphScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && len(scopes) > 0 {
			o.withGraphScopes = scopes
		}
	}
}

// WithHTTPClient provides the client Graph is called with. The bearer
// token is added by the server.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && c != nil {
			o.withHTTPClient = c
		}
	}
}

// WithRequiredScope rejects tokens that were not granted scope with 403.
func WithRequiredScope(scope string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withRequiredScope = scope
		}
	}
}
