// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// PublicClient is a token.Facade backed by an MSAL public client.
type PublicClient struct {
	token.EventHub

	vendor                vendor
	tenantID              string
	authority             string
	postLogoutRedirectURI string
	openURL               func(string) error
	now                   func() time.Time
	logger                hclog.Logger

	mu     sync.Mutex
	active *token.Account
}

var _ token.Facade = (*PublicClient)(nil)

// NewPublicClient creates a PublicClient for the application clientID
// registered in tenantID.
//
// Supported options:
//   - WithLogger
//   - WithAuthorityHost
//   - WithRedirectURI
//   - WithPostLogoutRedirectURI
//   - WithCache
//   - WithHTTPClient
//   - WithOpenURL
func NewPublicClient(tenantID, clientID string, opt ...Option) (*PublicClient, error) {
	const op = "NewPublicClient"
	tenantID, clientID = strings.TrimSpace(tenantID), strings.TrimSpace(clientID)
	switch {
	case tenantID == "":
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	authority, err := url.JoinPath(opts.withAuthorityHost, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to build authority: %w", op, err)
	}

	v := opts.withVendor
	if v == nil {
		if v, err = newMSALPublic(clientID, authority, opts); err != nil {
			return nil, fmt.Errorf("%s: unable to create msal client: %w", op, err)
		}
	}
	return &PublicClient{
		vendor:                v,
		tenantID:              tenantID,
		authority:             authority,
		postLogoutRedirectURI: opts.withPostLogoutRedirectURI,
		openURL:               opts.withOpenURL,
		now:                   opts.withNow,
		logger:                opts.withLogger.Named("entra").With("tenant_id", tenantID),
	}, nil
}

// Authority returns the authority URL tokens are requested from.
func (c *PublicClient) Authority() string {
	return c.authority
}

// Accounts implements token.Facade and returns the accounts in MSAL's
// cache.
func (c *PublicClient) Accounts(ctx context.Context) ([]token.Account, error) {
	const op = "PublicClient.Accounts"
	accts, err := c.vendor.accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toAccounts(accts), nil
}

// ActiveAccount implements token.Facade.
func (c *PublicClient) ActiveAccount() (token.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return token.Account{}, false
	}
	return *c.active, true
}

// SetActiveAccount implements token.Facade.
func (c *PublicClient) SetActiveAccount(a token.Account) {
	c.mu.Lock()
	changed := c.active == nil || !c.active.Equal(a)
	c.active = &a
	c.mu.Unlock()
	if changed {
		c.logger.Debug("active account changed", "account", a.String())
		c.Publish(token.Event{Type: token.EventActiveAccountChanged, Account: &a})
	}
}

func (c *PublicClient) clearActiveAccount(a token.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.Equal(a) {
		c.active = nil
	}
}

// AcquireTokenSilent implements token.Facade. Failures which need the user to
// sign in again match token.ErrInteractionRequired.
//
// MSAL has no force refresh switch for public clients: a claims request
// bypasses its access token cache, so WithForceRefresh without a claims
// challenge sends a not-before claim of the current time.
func (c *PublicClient) AcquireTokenSilent(ctx context.Context, s token.Scopes, a token.Account, opt ...token.Option) (*oauth2.Token, error) {
	const op = "PublicClient.AcquireTokenSilent"
	opts := token.GetSilentOpts(opt...)
	tk, err := c.acquireSilent(ctx, s, a, opts)
	if err != nil {
		c.Publish(token.Event{Type: token.EventAcquireTokenFailure, Account: &a, Err: err})
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Publish(token.Event{Type: token.EventAcquireTokenSuccess, Account: &a})
	return tk, nil
}

func (c *PublicClient) acquireSilent(ctx context.Context, s token.Scopes, a token.Account, opts token.SilentOptions) (*oauth2.Token, error) {
	cached, err := c.vendor.accounts(ctx)
	if err != nil {
		return nil, err
	}
	acct, ok := findAccount(cached, a)
	if !ok {
		return nil, classifySilent(fmt.Errorf("%s: %w", a.String(), ErrAccountNotCached))
	}
	claims := opts.Claims
	if claims == "" && opts.ForceRefresh {
		claims = notBeforeClaims(c.now())
	}
	res, err := c.vendor.silent(ctx, s.Values(), acct, claims)
	if err != nil {
		return nil, classifySilent(err)
	}
	return &oauth2.Token{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		Expiry:      res.ExpiresOn,
	}, nil
}

// AcquireTokenInteractive implements token.Facade. It opens the sign in
// page in the browser and returns once the user completed it. The signed in
// account becomes the active account.
func (c *PublicClient) AcquireTokenInteractive(ctx context.Context, s token.Scopes, opt ...token.Option) error {
	const op = "PublicClient.AcquireTokenInteractive"
	opts := token.GetInteractiveOpts(opt...)

	c.SetInteraction(token.InteractionLogin)
	defer c.SetInteraction(token.InteractionNone)
	c.Publish(token.Event{Type: token.EventLoginStart})

	before, err := c.vendor.accounts(ctx)
	if err != nil {
		c.logger.Warn("unable to list cached accounts", "error", err)
	}
	c.logger.Debug("starting interactive sign in", "audience", s.Audience(), "return_target", opts.ReturnTarget)
	res, err := c.vendor.interactive(ctx, s.Values(), opts.LoginHint)
	if err != nil {
		c.Publish(token.Event{Type: token.EventLoginFailure, Err: err})
		return fmt.Errorf("%s: %w", op, err)
	}

	acct := toAccount(res.Account)
	if _, known := findAccount(before, acct); !known {
		c.Publish(token.Event{Type: token.EventAccountAdded, Account: &acct})
	}
	c.SetActiveAccount(acct)
	c.logger.Info("signed in", "account", acct.String())
	c.Publish(token.Event{Type: token.EventLoginSuccess, Account: &acct})
	return nil
}

// SignOutInteractive implements token.Facade. The account is removed from
// MSAL's cache, then the Entra ID sign out page is opened so the browser
// session ends as well. A zero account only opens the sign out page.
func (c *PublicClient) SignOutInteractive(ctx context.Context, a token.Account) error {
	const op = "PublicClient.SignOutInteractive"

	c.SetInteraction(token.InteractionLogout)
	defer c.SetInteraction(token.InteractionNone)
	c.Publish(token.Event{Type: token.EventLogoutStart, Account: &a})

	fail := func(err error) error {
		c.Publish(token.Event{Type: token.EventLogoutFailure, Account: &a, Err: err})
		return fmt.Errorf("%s: %w", op, err)
	}

	if !a.IsZero() {
		cached, err := c.vendor.accounts(ctx)
		if err != nil {
			return fail(err)
		}
		if acct, ok := findAccount(cached, a); ok {
			if err := c.vendor.remove(ctx, acct); err != nil {
				return fail(fmt.Errorf("unable to remove account: %w", err))
			}
			c.clearActiveAccount(a)
			c.Publish(token.Event{Type: token.EventAccountRemoved, Account: &a})
		}
	}

	u, err := c.LogoutURL(a)
	if err != nil {
		return fail(err)
	}
	if err := c.openURL(u); err != nil {
		return fail(fmt.Errorf("unable to open sign out page: %w", err))
	}
	c.logger.Info("signed out", "account", a.String())
	c.Publish(token.Event{Type: token.EventLogoutSuccess, Account: &a})
	return nil
}

// LogoutURL returns the Entra ID end session url for a.
func (c *PublicClient) LogoutURL(a token.Account) (string, error) {
	const op = "PublicClient.LogoutURL"
	u, err := url.Parse(c.authority)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u = u.JoinPath("oauth2", "v2.0", "logout")
	q := url.Values{}
	if c.postLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", c.postLogoutRedirectURI)
	}
	if a.Username != "" {
		q.Set("logout_hint", a.Username)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// notBeforeClaims is a claims request which no cached access token
// satisfies.
func notBeforeClaims(now time.Time) string {
	return `{"access_token":{"nbf":{"essential":true,"value":"` + strconv.FormatInt(now.Unix(), 10) + `"}}}`
}
