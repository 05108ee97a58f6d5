// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"net/http"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/browser"
)

// DefaultAuthorityHost is the Entra ID authority host of the public cloud.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

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

type options struct {
	withLogger                hclog.Logger
	withAuthorityHost         string
	withRedirectURI           string
	withPostLogoutRedirectURI string
	withCache                 cache.ExportReplace
	withHTTPClient            *http.Client
	withOpenURL               func(string) error
	withNow                   func() time.Time

	// withVendor replaces the MSAL client, for tests.
	withVendor vendor
	// withOBOFactory replaces the MSAL confidential client, for tests.
	withOBOFactory oboFactory
}

func getDefaults() options {
	return options{
		withLogger:        hclog.NewNullLogger(),
		withAuthorityHost: DefaultAuthorityHost,
		withOpenURL:       browser.OpenURL,
		withNow:           time.Now,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: NewPublicClient,
// NewConfidentialClient, NewFileCache
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithAuthorityHost overrides DefaultAuthorityHost for: NewPublicClient,
// NewConfidentialClient
func WithAuthorityHost(host string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && host != "" {
			v.withAuthorityHost = host
		}
	}
}

// WithRedirectURI provides the loopback redirect uri registered for the
// application, for: NewPublicClient
func WithRedirectURI(uri string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withRedirectURI = uri
		}
	}
}

// WithPostLogoutRedirectURI provides where the browser lands after sign out,
// for: NewPublicClient
func WithPostLogoutRedirectURI(uri string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withPostLogoutRedirectURI = uri
		}
	}
}

// WithCache provides persistence for MSAL's token cache, for:
// NewPublicClient
func WithCache(c cache.ExportReplace) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && c != nil {
			v.withCache = c
		}
	}
}

// WithHTTPClient provides the http client MSAL sends requests with, for:
// NewPublicClient, NewConfidentialClient
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && c != nil {
			v.withHTTPClient = c
		}
	}
}

// WithOpenURL overrides how the sign in and sign out pages are opened. The
// default opens the system browser. Valid for: NewPublicClient
func WithOpenURL(fn func(url string) error) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && fn != nil {
			v.withOpenURL = fn
		}
	}
}

func withNow(fn func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withNow = fn
		}
	}
}

func withVendor(vc vendor) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withVendor = vc
		}
	}
}

func withOBOFactory(f oboFactory) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withOBOFactory = f
		}
	}
}
