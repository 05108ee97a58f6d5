// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt validates access tokens presented to a web api by clients of one
or more Entra ID tenants.

The tenant of a token is chosen from its unverified tid claim, falling back
to the tenant id in its iss claim. The token is then verified against that
tenant's keys, issuer and audience with github.com/coreos/go-oidc/v3.

Example:

	v, err := jwt.NewValidator(ctx, []jwt.Tenant{{
		ID:       "72f988bf-86f1-41af-91ab-2d7cd011db47",
		Issuer:   "https://login.microsoftonline.com/72f988bf-86f1-41af-91ab-2d7cd011db47/v2.0",
		Audience: "api://my-api",
	}})
	if err != nil {
		// handle error
	}
	claims, err := v.Validate(ctx, rawAccessToken)
*/
package jwt
