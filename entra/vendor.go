// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// vendor is the part of the MSAL public client PublicClient uses.
type vendor interface {
	accounts(ctx context.Context) ([]public.Account, error)
	silent(ctx context.Context, scopes []string, a public.Account, claims string) (public.AuthResult, error)
	interactive(ctx context.Context, scopes []string, loginHint string) (public.AuthResult, error)
	remove(ctx context.Context, a public.Account) error
}

type msalPublic struct {
	client      public.Client
	redirectURI string
	openURL     func(string) error
}

var _ vendor = (*msalPublic)(nil)

func newMSALPublic(clientID, authority string, opts options) (*msalPublic, error) {
	msalOpts := []public.Option{public.WithAuthority(authority)}
	if opts.withCache != nil {
		msalOpts = append(msalOpts, public.WithCache(opts.withCache))
	}
	if opts.withHTTPClient != nil {
		msalOpts = append(msalOpts, public.WithHTTPClient(opts.withHTTPClient))
	}
	c, err := public.New(clientID, msalOpts...)
	if err != nil {
		return nil, err
	}
	return &msalPublic{
		client:      c,
		redirectURI: opts.withRedirectURI,
		openURL:     opts.withOpenURL,
	}, nil
}

func (m *msalPublic) accounts(ctx context.Context) ([]public.Account, error) {
	return m.client.Accounts(ctx)
}

func (m *msalPublic) silent(ctx context.Context, scopes []string, a public.Account, claims string) (public.AuthResult, error) {
	if claims == "" {
		return m.client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(a))
	}
	return m.client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(a), public.WithClaims(claims))
}

func (m *msalPublic) interactive(ctx context.Context, scopes []string, loginHint string) (public.AuthResult, error) {
	switch {
	case m.redirectURI != "" && loginHint != "":
		return m.client.AcquireTokenInteractive(ctx, scopes,
			public.WithRedirectURI(m.redirectURI),
			public.WithLoginHint(loginHint),
			public.WithOpenURL(m.openURL),
		)
	case m.redirectURI != "":
		return m.client.AcquireTokenInteractive(ctx, scopes,
			public.WithRedirectURI(m.redirectURI),
			public.WithOpenURL(m.openURL),
		)
	case loginHint != "":
		return m.client.AcquireTokenInteractive(ctx, scopes,
			public.WithLoginHint(loginHint),
			public.WithOpenURL(m.openURL),
		)
	default:
		return m.client.AcquireTokenInteractive(ctx, scopes, public.WithOpenURL(m.openURL))
	}
}

func (m *msalPublic) remove(ctx context.Context, a public.Account) error {
	return m.client.RemoveAccount(ctx, a)
}
