// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package resource provides an authenticated HTTP client for a single resource
server audience.

Transport attaches a bearer token obtained from a token.Fetcher to every
outgoing request. When the resource server answers 401 the token is refreshed
once and the request is resent exactly once; 403 is never retried.

Example:

	graph, err := token.NewScopes(token.GraphAudience, "User.Read")
	if err != nil {
		// handle error
	}
	fetcher, err := token.NewFetcher(facade, graph)
	if err != nil {
		// handle error
	}
	c, err := resource.NewClient("https://graph.microsoft.com/v1.0", fetcher)
	if err != nil {
		// handle error
	}
	raw, err := c.Get(ctx, "/me")
	switch {
	case errors.Is(err, token.ErrRedirectInitiated):
		// the user must complete the interactive sign-in
	case errors.Is(err, resource.ErrForbidden):
		// the account lacks permission
	case err != nil:
		// handle error
	}
*/
package resource
