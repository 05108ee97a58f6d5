// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package entra implements token.Facade with the Microsoft Authentication
Library (MSAL) for Go.

PublicClient signs users in through the system browser (authorization code
with PKCE on a loopback redirect) and keeps their tokens in MSAL's cache,
which FileCache persists between runs. ConfidentialClient exchanges a
caller's access token for a downstream token with the on-behalf-of flow.

Example:

	fc, err := entra.NewFileCache(cfg.TokenCachePath)
	if err != nil {
		// handle error
	}
	pc, err := entra.NewPublicClient(cfg.TenantID, cfg.ClientID,
		entra.WithRedirectURI(cfg.RedirectURI),
		entra.WithCache(fc),
		entra.WithLogger(logger),
	)
	if err != nil {
		// handle error
	}
	fetcher, err := token.NewFetcher(pc, graphScopes)
*/
package entra
