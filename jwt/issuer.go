// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"fmt"
	"net/url"
	"strings"
)

// TenantIDFromIssuer returns the tenant id of an Entra ID issuer, either
// https://login.microsoftonline.com/{tenant}/v2.0 or
// https://sts.windows.net/{tenant}/. The multi-tenant issuers common and
// organizations are rejected with ErrDisallowedTenant.
func TenantIDFromIssuer(iss string) (string, error) {
	const op = "jwt.TenantIDFromIssuer"
	u, err := url.Parse(iss)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s: %q is not an absolute url: %w", op, iss, ErrInvalidIssuer)
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	switch strings.ToLower(first) {
	case "":
		return "", fmt.Errorf("%s: %q has no tenant segment: %w", op, iss, ErrInvalidIssuer)
	case "common", "organizations", "consumers":
		return "", fmt.Errorf("%s: %q: %w", op, first, ErrDisallowedTenant)
	default:
		return first, nil
	}
}
