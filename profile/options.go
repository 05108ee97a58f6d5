// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

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

type options struct {
	withLogger hclog.Logger
	withPath   string
}

func getDefaults() options {
	return options{
		withLogger: hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: Decode, NewGraphClient,
// NewBackendClient and NewView
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithPath overrides the path requested relative to the resource client's
// base url. Valid for: NewGraphClient, NewBackendClient
func WithPath(p string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withPath = p
		}
	}
}
