// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import (
	"fmt"
	"strings"
)

// GraphAudience is the resource identifier of Microsoft Graph. Short-form
// permissions such as "User.Read" are attributed to it.
const GraphAudience = "https://graph.microsoft.com"

// reservedScopes are OIDC scopes the identity provider accepts alongside any
// single resource.
var reservedScopes = map[string]struct{}{
	"openid":         {},
	"profile":        {},
	"offline_access": {},
	"email":          {},
}

// Scopes is an ordered, deduplicated list of permissions bound to exactly one
// resource audience. The zero value is not usable; see NewScopes.
type Scopes struct {
	audience string
	values   []string
}

// NewScopes binds scopes to audience. Every fully-qualified scope
// ("<resource>/<permission>") must name audience as its resource, short-form
// permissions are only accepted for GraphAudience, and the reserved OIDC scopes
// are accepted for any audience. Duplicates (compared case-insensitively) are
// dropped, keeping the first occurrence.
func NewScopes(audience string, scopes ...string) (Scopes, error) {
	const op = "NewScopes"
	aud := normalizeAudience(audience)
	if aud == "" {
		return Scopes{}, fmt.Errorf("%s: audience is empty: %w", op, ErrInvalidParameter)
	}
	if len(scopes) == 0 {
		return Scopes{}, fmt.Errorf("%s: no scopes for audience %q: %w", op, aud, ErrInvalidParameter)
	}
	seen := make(map[string]struct{}, len(scopes))
	values := make([]string, 0, len(scopes))
	for _, raw := range scopes {
		s := strings.TrimSpace(raw)
		if s == "" {
			return Scopes{}, fmt.Errorf("%s: empty scope for audience %q: %w", op, aud, ErrInvalidParameter)
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		if err := checkAudience(aud, s); err != nil {
			return Scopes{}, fmt.Errorf("%s: %w", op, err)
		}
		seen[key] = struct{}{}
		values = append(values, s)
	}
	return Scopes{audience: aud, values: values}, nil
}

// Audience returns the resource the scopes are bound to.
func (s Scopes) Audience() string {
	return s.audience
}

// Values returns a copy of the scopes in their original order.
func (s Scopes) Values() []string {
	return append([]string(nil), s.values...)
}

// IsZero reports whether s was never initialized with NewScopes.
func (s Scopes) IsZero() bool {
	return s.audience == ""
}

// String returns the scopes space separated, as they appear in a token request.
func (s Scopes) String() string {
	return strings.Join(s.values, " ")
}

func checkAudience(aud, scope string) error {
	if _, ok := reservedScopes[strings.ToLower(scope)]; ok {
		return nil
	}
	i := strings.LastIndex(scope, "/")
	if i < 0 || strings.HasSuffix(scope[:i+1], "://") {
		if strings.EqualFold(aud, GraphAudience) {
			return nil
		}
		return fmt.Errorf("short-form scope %q cannot be bound to %q: %w", scope, aud, ErrMixedAudience)
	}
	if resource := normalizeAudience(scope[:i]); !strings.EqualFold(resource, aud) {
		return fmt.Errorf("scope %q belongs to %q, not %q: %w", scope, resource, aud, ErrMixedAudience)
	}
	return nil
}

func normalizeAudience(aud string) string {
	return strings.TrimRight(strings.TrimSpace(aud), "/")
}
