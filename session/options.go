// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

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
	withLogger       hclog.Logger
	withReturnTarget string
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

// WithLogger provides an optional logger for: New
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithReturnTarget records where the user lands after Login completes.
// Valid for: New
func WithReturnTarget(target string) Option {
	return func(o interface{}) {
		if v, ok := o.(*options); ok {
			v.withReturnTarget = target
		}
	}
}
