// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// capentra acquires, attaches and validates Entra ID access tokens for
// applications that call more than one protected resource.
//
// Packages:
//   - token: audience-scoped token fetchers over a token cache facade
//   - resource: http clients that attach bearer tokens and retry once on 401
//   - session: the signed-in state of a user
//   - profile: the Microsoft Graph profile and a view over it
//   - entra: the MSAL backed facade, its file cache and on-behalf-of client
//   - jwt: access token validation for resource servers
//   - backend: a resource server calling Graph on behalf of its callers
//   - config: process configuration
//
// See README.md
package capentra
