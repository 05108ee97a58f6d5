// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-hclog"
)

// Transport is an http.RoundTripper which authenticates requests for the
// audience of its fetcher.
//
// When no account is signed in the request is sent without credentials. A
// 401 response triggers a forced token refresh and the request is resent
// exactly once. A 403 response is returned as is.
type Transport struct {
	fetcher *token.Fetcher
	base    http.RoundTripper
	account *token.Account
	logger  hclog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport for fetcher's audience.
//
// Supported options:
//   - WithLogger
//   - WithAccount
//   - WithBaseTransport
//   - WithHTTPClient
func NewTransport(fetcher *token.Fetcher, opt ...Option) (*Transport, error) {
	const op = "NewTransport"
	if fetcher == nil {
		return nil, fmt.Errorf("%s: fetcher is nil: %w", op, ErrNilParameter)
	}
	opts := getTransportOpts(opt...)
	return newTransport(fetcher, opts), nil
}

func newTransport(fetcher *token.Fetcher, opts transportOptions) *Transport {
	return &Transport{
		fetcher: fetcher,
		base:    opts.withBase,
		account: opts.withAccount,
		logger:  opts.withLogger.Named("transport").With("audience", fetcher.Audience()),
	}
}

// RoundTrip implements http.RoundTripper. The request is cloned before any
// header is set.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	const op = "Transport.RoundTrip"
	ctx := req.Context()

	acct, ok, err := t.selectAccount(ctx)
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		t.logger.Trace("no signed in account, sending request without credentials", "url", req.URL.Redacted())
		return t.base.RoundTrip(req)
	}

	tk, err := t.fetcher.Fetch(ctx, acct)
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := t.base.RoundTrip(withBearer(req, tk.AccessToken, req.Body))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// the body has been consumed by the first attempt
	body := req.Body
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			t.logger.Debug("request body cannot be rewound, not retrying", "url", req.URL.Redacted())
			return resp, nil
		}
		if body, err = req.GetBody(); err != nil {
			return resp, nil
		}
	}

	claims := claimsChallenge(resp.Header.Values("WWW-Authenticate"))
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiscard))
	_ = resp.Body.Close()

	t.logger.Debug("resource server rejected token, refreshing", "url", req.URL.Redacted(), "claims_challenge", claims != "")
	tk, err = t.fetcher.Fetch(ctx, acct, token.WithForceRefresh(), token.WithClaims(claims))
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, fmt.Errorf("%s: unable to refresh token: %w", op, err)
	}
	return t.base.RoundTrip(withBearer(req, tk.AccessToken, body))
}

// selectAccount returns the pinned account, or the facade's active account
// (the first known account when none is active), making it the active one.
// It reports false when nobody is signed in.
func (t *Transport) selectAccount(ctx context.Context) (token.Account, bool, error) {
	if t.account != nil {
		return *t.account, true, nil
	}
	facade := t.fetcher.Facade()
	accounts, err := facade.Accounts(ctx)
	if err != nil {
		return token.Account{}, false, fmt.Errorf("unable to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return token.Account{}, false, nil
	}
	acct, ok := facade.ActiveAccount()
	if !ok || acct.IsZero() {
		acct = accounts[0]
	}
	facade.SetActiveAccount(acct)
	return acct, true, nil
}

const maxDiscard = 4 << 10

func withBearer(req *http.Request, accessToken string, body io.ReadCloser) *http.Request {
	r := req.Clone(req.Context())
	r.Body = body
	r.Header.Set("Authorization", "Bearer "+accessToken)
	return r
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

var claimsParam = regexp.MustCompile(`(?i)\bclaims="([^"]*)"`)

// claimsChallenge returns the decoded claims parameter of a Bearer
// WWW-Authenticate challenge, or "" when there is none.
func claimsChallenge(challenges []string) string {
	for _, c := range challenges {
		m := claimsParam.FindStringSubmatch(c)
		if m == nil || m[1] == "" {
			continue
		}
		for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
			if b, err := enc.DecodeString(m[1]); err == nil {
				return string(b)
			}
		}
		return m[1]
	}
	return ""
}
