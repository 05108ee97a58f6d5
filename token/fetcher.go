// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Fetcher acquires access tokens for one audience. Concurrent calls to Fetch
// share a single pending acquisition; the slot is cleared as soon as that
// acquisition settles, so the next call starts a new one.
//
// Fetchers for different audiences are independent: a pending Graph fetch
// never blocks or shares a result with a pending backend fetch.
type Fetcher struct {
	facade Facade
	scopes Scopes
	logger hclog.Logger

	// inflight holds at most one pending acquisition, keyed by audience.
	inflight singleflight.Group
}

// NewFetcher creates a Fetcher for the audience of s.
//
// Supported options:
//   - WithLogger
func NewFetcher(f Facade, s Scopes, opt ...Option) (*Fetcher, error) {
	const op = "NewFetcher"
	if f == nil {
		return nil, fmt.Errorf("%s: facade is nil: %w", op, ErrNilParameter)
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%s: scopes are empty: %w", op, ErrInvalidParameter)
	}
	opts := getFetcherOpts(opt...)
	return &Fetcher{
		facade: f,
		scopes: s,
		logger: opts.withLogger.Named("fetcher").With("audience", s.Audience()),
	}, nil
}

// Audience returns the resource this fetcher requests tokens for.
func (f *Fetcher) Audience() string {
	return f.scopes.Audience()
}

// Scopes returns the scopes this fetcher requests.
func (f *Fetcher) Scopes() Scopes {
	return f.scopes
}

// Facade returns the facade the fetcher acquires tokens from.
func (f *Fetcher) Facade() Facade {
	return f.facade
}

// Fetch returns an access token for account a.
//
// When the facade reports ErrInteractionRequired the interactive flow is
// started for this audience's scopes and the returned error matches both
// ErrRedirectInitiated and ErrInteractionRequired. If the interactive flow
// could not be started, the error matches ErrInteractionRequired and carries
// the interactive failure as well.
//
// A caller whose ctx is done stops waiting; the shared acquisition keeps
// running for the other callers.
//
// Supported options:
//   - WithForceRefresh
//   - WithClaims
//   - WithoutInteraction
func (f *Fetcher) Fetch(ctx context.Context, a Account, opt ...Option) (*oauth2.Token, error) {
	const op = "Fetcher.Fetch"
	if ctx == nil {
		return nil, fmt.Errorf("%s: context is nil: %w", op, ErrNilParameter)
	}
	if a.IsZero() {
		return nil, fmt.Errorf("%s: %w", op, ErrNoAccount)
	}

	key := f.scopes.Audience()
	fo := getFetchOpts(opt...)
	if fo.forceRefresh {
		key += forceRefreshKeySuffix
	}
	if fo.withoutInteraction {
		key += silentOnlyKeySuffix
	}
	shared := context.WithoutCancel(ctx)
	ch := f.inflight.DoChan(key, func() (interface{}, error) {
		return f.acquire(shared, a, fo, opt...)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Shared {
			f.logger.Trace("joined pending token acquisition")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

const (
	forceRefreshKeySuffix = "#force"
	silentOnlyKeySuffix   = "#silent"
)

func (f *Fetcher) acquire(ctx context.Context, a Account, fo fetchOptions, opt ...Option) (*oauth2.Token, error) {
	const op = "Fetcher.acquire"
	tk, err := f.facade.AcquireTokenSilent(ctx, f.scopes, a, opt...)
	switch {
	case err == nil:
		if tk == nil || tk.AccessToken == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrEmptyToken)
		}
		f.logger.Debug("acquired token silently", "account", a.String())
		return tk, nil

	case errors.Is(err, ErrInteractionRequired) && fo.withoutInteraction:
		f.logger.Debug("silent token acquisition requires interaction", "account", a.String())
		return nil, fmt.Errorf("%s: %w", op, err)

	case errors.Is(err, ErrInteractionRequired):
		f.logger.Warn("silent token acquisition requires interaction", "account", a.String(), "error", err)
		if iErr := f.facade.AcquireTokenInteractive(ctx, f.scopes, WithLoginHint(a.Username)); iErr != nil {
			f.logger.Error("unable to start interactive authentication", "error", iErr)
			return nil, fmt.Errorf("%s: interactive authentication failed: %w", op, multierror.Append(err, iErr))
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRedirectInitiated, err)

	default:
		f.logger.Error("silent token acquisition failed", "account", a.String(), "error", err)
		return nil, fmt.Errorf("%s: silent token acquisition failed: %w", op, err)
	}
}
