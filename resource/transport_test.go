// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/cap-entra/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// recorder is a resource server which answers with the next status in
// statuses and records the Authorization header and body of every request.
type recorder struct {
	srv      *httptest.Server
	hits     atomic.Int32
	mu       sync.Mutex
	statuses []int
	auth     []string
	bodies   []string
	header   http.Header
}

func newRecorder(t *testing.T, statuses ...int) *recorder {
	t.Helper()
	r := &recorder{statuses: statuses, header: http.Header{}}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := int(r.hits.Add(1)) - 1
		b, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		r.bodies = append(r.bodies, string(b))
		status := http.StatusOK
		if n < len(r.statuses) {
			status = r.statuses[n]
		}
		for k, v := range r.header {
			w.Header()[k] = v
		}
		r.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"u1"}`))
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *recorder) authHeaders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.auth...)
}

func (r *recorder) requestBodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

// countingTokens returns a silent acquisition func which issues token-1,
// token-2, ... so a refreshed token can be told apart.
func countingTokens() func(context.Context, token.Scopes, token.Account, token.SilentOptions) (*oauth2.Token, error) {
	var n atomic.Int32
	return func(context.Context, token.Scopes, token.Account, token.SilentOptions) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "token-" + string(rune('0'+n.Add(1)))}, nil
	}
}

func testFetcher(t *testing.T, f token.Facade) *token.Fetcher {
	t.Helper()
	s, err := token.NewScopes(token.GraphAudience, "User.Read")
	require.NoError(t, err)
	fetcher, err := token.NewFetcher(f, s)
	require.NoError(t, err)
	return fetcher
}

func testHTTPClient(t *testing.T, f token.Facade, opt ...Option) *http.Client {
	t.Helper()
	tr, err := NewTransport(testFetcher(t, f), opt...)
	require.NoError(t, err)
	return &http.Client{Transport: tr}
}

func TestNewTransport(t *testing.T) {
	t.Parallel()
	_, err := NewTransport(nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestTransport_RoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("no-accounts-sends-unauthenticated", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t)
		facade := token.NewTestFacade()
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
		assert.Equal([]string{""}, srv.authHeaders())
		assert.Equal(0, facade.SilentCalls())
		assert.Equal(0, facade.ActiveAccountSets())
	})

	t.Run("attaches-bearer-and-sets-active-account", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t)
		facade := token.NewTestFacade(token.TestAccount)
		c := testHTTPClient(t, facade)

		req, err := http.NewRequest(http.MethodGet, srv.srv.URL, nil)
		require.NoError(err)
		resp, err := c.Do(req)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal([]string{"Bearer test-access-token:https://graph.microsoft.com"}, srv.authHeaders())
		assert.Empty(req.Header.Get("Authorization"), "caller's request must not be modified")
		active, ok := facade.ActiveAccount()
		require.True(ok)
		assert.True(active.Equal(token.TestAccount))
	})

	t.Run("prefers-active-account", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t)
		bob := token.Account{HomeAccountID: "bob-home", Username: "bob@example.com"}
		facade := token.NewTestFacade(token.TestAccount, bob)
		facade.SetActiveAccount(bob)
		var used token.Account
		facade.SetSilent(func(_ context.Context, _ token.Scopes, a token.Account, _ token.SilentOptions) (*oauth2.Token, error) {
			used = a
			return &oauth2.Token{AccessToken: "bob-token"}, nil
		})
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal("bob@example.com", used.Username)
	})

	t.Run("pinned-account-leaves-active-account-alone", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t)
		bob := token.Account{HomeAccountID: "bob-home", Username: "bob@example.com"}
		facade := token.NewTestFacade(token.TestAccount)
		var used token.Account
		facade.SetSilent(func(_ context.Context, _ token.Scopes, a token.Account, _ token.SilentOptions) (*oauth2.Token, error) {
			used = a
			return &oauth2.Token{AccessToken: "bob-token"}, nil
		})
		c := testHTTPClient(t, facade, WithAccount(bob))

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal("bob@example.com", used.Username)
		assert.Equal(0, facade.ActiveAccountSets())
	})

	t.Run("401-is-retried-once-with-fresh-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusUnauthorized)
		facade := token.NewTestFacade(token.TestAccount)
		facade.SetSilent(countingTokens())
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
		assert.Equal(int32(2), srv.hits.Load())
		assert.Equal([]string{"Bearer token-1", "Bearer token-2"}, srv.authHeaders())
		seen := facade.SilentOptionsSeen()
		require.Len(seen, 2)
		assert.False(seen[0].ForceRefresh)
		assert.True(seen[1].ForceRefresh)
	})

	t.Run("second-401-is-returned", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized)
		facade := token.NewTestFacade(token.TestAccount)
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(int32(2), srv.hits.Load())
		assert.Equal(2, facade.SilentCalls())
	})

	t.Run("403-is-not-retried", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusForbidden, http.StatusOK)
		facade := token.NewTestFacade(token.TestAccount)
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusForbidden, resp.StatusCode)
		assert.Equal(int32(1), srv.hits.Load())
		assert.Equal(1, facade.SilentCalls())
	})

	t.Run("retry-rewinds-body", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusUnauthorized)
		facade := token.NewTestFacade(token.TestAccount)
		c := testHTTPClient(t, facade)

		resp, err := c.Post(srv.srv.URL, "application/json", strings.NewReader(`{"a":1}`))
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
		assert.Equal([]string{`{"a":1}`, `{"a":1}`}, srv.requestBodies())
	})

	t.Run("claims-challenge-is-forwarded", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusUnauthorized)
		claims := `{"access_token":{"nbf":{"essential":true,"value":"1700000000"}}}`
		srv.header.Set("WWW-Authenticate", `Bearer realm="", error="insufficient_claims", claims="`+base64.StdEncoding.EncodeToString([]byte(claims))+`"`)
		facade := token.NewTestFacade(token.TestAccount)
		c := testHTTPClient(t, facade)

		resp, err := c.Get(srv.srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		seen := facade.SilentOptionsSeen()
		require.Len(seen, 2)
		assert.Equal(claims, seen[1].Claims)
	})

	t.Run("refresh-needing-interaction-is-not-resent", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t, http.StatusUnauthorized)
		facade := token.NewTestFacade(token.TestAccount)
		facade.SetSilent(func(_ context.Context, _ token.Scopes, _ token.Account, opts token.SilentOptions) (*oauth2.Token, error) {
			if opts.ForceRefresh {
				return nil, token.ErrInteractionRequired
			}
			return &oauth2.Token{AccessToken: "stale"}, nil
		})
		facade.SetInteractive(func(context.Context, token.Scopes, token.InteractiveOptions) error { return nil })
		c := testHTTPClient(t, facade)

		_, err := c.Get(srv.srv.URL)
		require.Error(err)
		assert.ErrorIs(err, token.ErrRedirectInitiated)
		assert.ErrorIs(err, token.ErrInteractionRequired)
		assert.Equal(int32(1), srv.hits.Load())
		assert.Equal(1, facade.InteractiveCalls())
	})

	t.Run("fetch-failure-sends-nothing", func(t *testing.T) {
		assert := assert.New(t)
		srv := newRecorder(t)
		facade := token.NewTestFacade(token.TestAccount)
		down := errors.New("token endpoint unreachable")
		facade.SetSilent(func(context.Context, token.Scopes, token.Account, token.SilentOptions) (*oauth2.Token, error) {
			return nil, down
		})
		c := testHTTPClient(t, facade)

		_, err := c.Get(srv.srv.URL)
		assert.ErrorIs(err, down)
		assert.Equal(int32(0), srv.hits.Load())
	})
}

func TestClaimsChallenge(t *testing.T) {
	t.Parallel()
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"access_token":{}}`))
	tests := []struct {
		name       string
		challenges []string
		want       string
	}{
		{name: "none"},
		{name: "no-claims", challenges: []string{`Bearer realm="api"`}},
		{name: "encoded", challenges: []string{`Bearer error="insufficient_claims", claims="` + encoded + `"`}, want: `{"access_token":{}}`},
		{name: "second-challenge", challenges: []string{`Basic realm="x"`, `Bearer claims="` + encoded + `"`}, want: `{"access_token":{}}`},
		{name: "not-encoded", challenges: []string{`Bearer claims="{}"`}, want: `{}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, claimsChallenge(tt.challenges))
		})
	}
}
