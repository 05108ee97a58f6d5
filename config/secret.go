// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import "encoding/json"

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (s ClientSecret) String() string {
	return RedactedClientSecret
}

// GoString will redact the client secret
func (s ClientSecret) GoString() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}
