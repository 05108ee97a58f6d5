// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import "github.com/hashicorp/go-hclog"

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

// SilentOptions are the options a Facade receives with AcquireTokenSilent.
type SilentOptions struct {
	// ForceRefresh asks the facade to skip any cached access token and
	// redeem the refresh token instead.
	ForceRefresh bool

	// Claims is an optional claims challenge, typically taken from the
	// WWW-Authenticate header of a rejected request.
	Claims string
}

// GetSilentOpts gets the defaults and applies the opt overrides passed in.
func GetSilentOpts(opt ...Option) SilentOptions {
	opts := SilentOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// InteractiveOptions are the options a Facade receives with
// AcquireTokenInteractive.
type InteractiveOptions struct {
	// LoginHint pre-fills the username on the provider's sign-in page.
	LoginHint string

	// ReturnTarget is where the user should land once the interactive flow
	// completes.
	ReturnTarget string
}

// GetInteractiveOpts gets the defaults and applies the opt overrides passed
// in.
func GetInteractiveOpts(opt ...Option) InteractiveOptions {
	opts := InteractiveOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

type fetcherOptions struct {
	withLogger hclog.Logger
}

func fetcherDefaults() fetcherOptions {
	return fetcherOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getFetcherOpts(opt ...Option) fetcherOptions {
	opts := fetcherDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: NewFetcher
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *fetcherOptions:
			v.withLogger = l
		}
	}
}

// WithForceRefresh bypasses cached access tokens for: Fetcher.Fetch,
// Facade.AcquireTokenSilent. Forced fetches are coalesced only with other
// forced fetches, so a forced caller never receives the result of a pending
// ordinary fetch.
func WithForceRefresh() Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *SilentOptions:
			v.ForceRefresh = true
		case *fetchOptions:
			v.forceRefresh = true
		}
	}
}

// WithClaims provides an optional claims challenge for: Fetcher.Fetch,
// Facade.AcquireTokenSilent
func WithClaims(claims string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *SilentOptions:
			v.Claims = claims
		}
	}
}

// WithLoginHint provides an optional login hint for:
// Facade.AcquireTokenInteractive
func WithLoginHint(username string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *InteractiveOptions:
			v.LoginHint = username
		}
	}
}

// WithReturnTarget provides an optional post-login return target for:
// Facade.AcquireTokenInteractive
func WithReturnTarget(target string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *InteractiveOptions:
			v.ReturnTarget = target
		}
	}
}

type fetchOptions struct {
	withoutInteraction bool
	forceRefresh       bool
}

func getFetchOpts(opt ...Option) fetchOptions {
	opts := fetchOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithoutInteraction stops Fetcher.Fetch from starting the interactive flow
// when the facade reports ErrInteractionRequired; the error is returned
// instead. Such fetches are coalesced separately from ordinary fetches so an
// ordinary caller never joins one.
func WithoutInteraction() Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *fetchOptions:
			v.withoutInteraction = true
		}
	}
}
