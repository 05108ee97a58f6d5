// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

import "errors"

var (
	ErrNilParameter      = errors.New("nil parameter")
	ErrMalformedResponse = errors.New("malformed response")
)
