// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package session tracks whether a user is signed in.

A Monitor follows the token facade's events and keeps a State that a user
interface can render: whether the silent sign-in check is still running,
whether an account is signed in, whether a login or logout is in progress,
and the last user-visible error.

Example:

	m, err := session.New(facade, graphFetcher, session.WithLogger(logger))
	if err != nil {
		// handle error
	}
	m.Mount(ctx)
	defer m.Unmount()

	if st := m.State(); !st.IsAuthenticated {
		m.Login(ctx)
	}
*/
package session
