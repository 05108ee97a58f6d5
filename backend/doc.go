// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package backend is a resource server protected by Entra ID access tokens.

It serves two routes:

	GET /api/health-check  public liveness probe
	GET /api/me            the caller's Microsoft Graph profile

/api/me validates the caller's bearer token, exchanges it for a Graph token
with the on-behalf-of flow and returns the caller's profile. Failures are
answered with a json body of the form {"code": 401, "message": "..."}.

	v, _ := jwt.NewValidator(ctx, tenants)
	obo, _ := entra.NewConfidentialClient(clientID, secret)
	srv, _ := backend.NewServer(v, obo, backend.WithLogger(logger))
	http.ListenAndServe(":8000", srv)
*/
package backend
