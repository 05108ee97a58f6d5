// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidIssuer     = errors.New("invalid issuer")
	ErrDisallowedTenant  = errors.New("disallowed tenant")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrNoValidPublicKeys = errors.New("no valid RSA or ECDSA public keys")
)
