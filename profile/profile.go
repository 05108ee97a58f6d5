// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Profile is the subset of the Microsoft Graph user resource returned by
// /v1.0/me. Every field is optional. String fields are pointers so a null or
// missing value stays distinct from an empty string when the profile is
// encoded again.
type Profile struct {
	ID                *string  `json:"id,omitempty"`
	UserPrincipalName *string  `json:"userPrincipalName,omitempty"`
	Surname           *string  `json:"surname,omitempty"`
	GivenName         *string  `json:"givenName,omitempty"`
	DisplayName       *string  `json:"displayName,omitempty"`
	Mail              *string  `json:"mail,omitempty"`
	JobTitle          *string  `json:"jobTitle,omitempty"`
	OfficeLocation    *string  `json:"officeLocation,omitempty"`
	BusinessPhones    []string `json:"businessPhones"`
	MobilePhone       *string  `json:"mobilePhone,omitempty"`
	PreferredLanguage *string  `json:"preferredLanguage,omitempty"`
}

// Name returns the best available name for display.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	for _, s := range []*string{p.DisplayName, p.UserPrincipalName, p.Mail} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}

// String returns the value of s, or "" when s is nil.
func String(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Decode validates the shape of raw and returns the profile it holds. The
// top level must be an object, known fields must be strings or null and
// businessPhones must be an array of strings. Unknown fields are ignored.
//
// A shape violation returns an error matching ErrMalformedResponse and is
// logged together with the raw payload.
//
// Supported options:
//   - WithLogger
func Decode(raw []byte, opt ...Option) (*Profile, error) {
	const op = "profile.Decode"
	opts := getOpts(opt...)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		opts.withLogger.Error("profile response is not a json object", "payload", string(raw))
		return nil, fmt.Errorf("%s: expected a json object: %w", op, ErrMalformedResponse)
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		opts.withLogger.Error("profile response has an unexpected shape", "payload", string(raw), "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	return &p, nil
}
