// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package token acquires per-audience access tokens for a signed-in account.

The hard protocol work (authorization code + PKCE, token caching, refresh) is
owned by a vendor SDK that implements the Facade interface (see the entra
package for the MSAL Go implementation). This package adds the orchestration
around it:

  - Scopes binds an ordered, deduplicated list of permissions to exactly one
    resource audience, so a token request never mixes audiences.

  - Fetcher coalesces concurrent token requests for its audience into a single
    silent acquisition, and escalates to the interactive flow when the facade
    reports ErrInteractionRequired.

  - EventHub fans out facade events (login, logout, account changes and the
    interaction status) to subscribers such as session.Monitor.

Interactive authentication is modelled as a distinct outcome: a Fetch that had
to escalate returns an error matching ErrRedirectInitiated, never a token.
Callers must not assume they can continue as if a token had been returned.

Example:

	graph, _ := token.NewScopes(token.GraphAudience, "User.Read")
	f, _ := token.NewFetcher(facade, graph, token.WithLogger(logger))
	tk, err := f.Fetch(ctx, account)
	switch {
	case errors.Is(err, token.ErrRedirectInitiated):
		// the user is being sent through the interactive flow
	case err != nil:
		// handle error
	}
	fmt.Println(tk.AccessToken)
*/
package token
