// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import "errors"

var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrNilParameter        = errors.New("nil parameter")
	ErrMixedAudience       = errors.New("scopes belong to more than one audience")
	ErrNoAccount           = errors.New("no signed-in account")
	ErrEmptyToken          = errors.New("access token is empty")
	ErrInteractionRequired = errors.New("interaction required")
	ErrRedirectInitiated   = errors.New("interactive authentication initiated")
)
