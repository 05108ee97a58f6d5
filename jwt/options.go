// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/go-hclog"
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

// supportedAlgorithms are the signing algorithms Entra ID issues access
// tokens with.
func supportedAlgorithms() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.RS256}
}

type validatorOptions struct {
	withLogger     hclog.Logger
	withAlgorithms []jose.SignatureAlgorithm
	withNow        func() time.Time
	withCAPEM      string
}

func validatorDefaults() validatorOptions {
	return validatorOptions{
		withLogger:     hclog.NewNullLogger(),
		withAlgorithms: supportedAlgorithms(),
	}
}

// getValidatorOpts gets the defaults and applies the opt overrides passed
// in.
func getValidatorOpts(opt ...Option) validatorOptions {
	opts := validatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for: NewValidator
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithSupportedAlgorithms overrides the accepted signing algorithms, RS256
// by default. Valid for: NewValidator
func WithSupportedAlgorithms(algs ...jose.SignatureAlgorithm) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok && len(algs) > 0 {
			v.withAlgorithms = algs
		}
	}
}

// WithNow provides the clock expiry is checked against. Valid for:
// NewValidator
func WithNow(fn func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok {
			v.withNow = fn
		}
	}
}

// WithCAPEM provides the CA certificates trusted when fetching keys. Valid
// for: NewValidator
func WithCAPEM(caPEM string) Option {
	return func(o interface{}) {
		if v, ok := o.(*validatorOptions); ok {
			v.withCAPEM = caPEM
		}
	}
}
