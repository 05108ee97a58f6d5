// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"net/http"
	"time"

	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

// DefaultTimeout bounds a single Client request, including a retry.
const DefaultTimeout = 30 * time.Second

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

type transportOptions struct {
	withLogger  hclog.Logger
	withAccount *token.Account
	withBase    http.RoundTripper
}

func transportDefaults() transportOptions {
	return transportOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getTransportOpts(opt ...Option) transportOptions {
	opts := transportDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withBase == nil {
		opts.withBase = cleanhttp.DefaultPooledTransport()
	}
	return opts
}

type clientOptions struct {
	transportOptions
	withTimeout time.Duration
}

func clientDefaults() clientOptions {
	return clientOptions{
		transportOptions: transportDefaults(),
		withTimeout:      DefaultTimeout,
	}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withBase == nil {
		opts.withBase = cleanhttp.DefaultPooledTransport()
	}
	return opts
}

// WithLogger provides an optional logger for: NewTransport, NewClient
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *transportOptions:
			v.withLogger = l
		case *clientOptions:
			v.withLogger = l
		}
	}
}

// WithAccount pins the account used for every request instead of selecting
// the facade's active account. A pinned account never changes the facade's
// active account. Valid for: NewTransport, NewClient
func WithAccount(a token.Account) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *transportOptions:
			v.withAccount = &a
		case *clientOptions:
			v.withAccount = &a
		}
	}
}

// WithBaseTransport provides the transport authenticated requests are sent
// with. The default is a pooled cleanhttp transport.
// Valid for: NewTransport, NewClient
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o interface{}) {
		if rt == nil {
			return
		}
		switch v := o.(type) {
		case *transportOptions:
			v.withBase = rt
		case *clientOptions:
			v.withBase = rt
		}
	}
}

// WithHTTPClient uses the transport of c as the base transport.
// Valid for: NewTransport, NewClient
func WithHTTPClient(c *http.Client) Option {
	if c == nil {
		return nil
	}
	return WithBaseTransport(c.Transport)
}

// WithTimeout bounds each Client request. A zero or negative d disables the
// timeout. Valid for: NewClient
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withTimeout = d
		}
	}
}
