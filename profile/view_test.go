// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hashicorp/cap-entra/resource"
	"github.com/hashicorp/cap-entra/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context) (*Profile, error)

func (f sourceFunc) Me(ctx context.Context) (*Profile, error) { return f(ctx) }

// testServer serves body for every path and returns the resource client.
func testServer(t *testing.T, audience, body string) *resource.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me" && r.URL.Path != "/api/me" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	scopes, err := token.NewScopes(audience, audience+"/User.Read")
	require.NoError(t, err)
	fetcher, err := token.NewFetcher(token.NewTestFacade(token.TestAccount), scopes)
	require.NoError(t, err)
	base := srv.URL + "/v1.0/me"
	if audience != token.GraphAudience {
		base = srv.URL + "/api"
	}
	rc, err := resource.NewClient(base, fetcher)
	require.NoError(t, err)
	return rc
}

func TestClient_Me(t *testing.T) {
	t.Parallel()

	t.Run("graph", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewGraphClient(testServer(t, token.GraphAudience, `{"id":"u1","displayName":"Ada"}`))
		require.NoError(err)
		p, err := c.Me(context.Background())
		require.NoError(err)
		assert.Equal(&Profile{ID: ptr("u1"), DisplayName: ptr("Ada")}, p)
	})

	t.Run("backend", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewBackendClient(testServer(t, "api://backend", `{"id":"u2"}`))
		require.NoError(err)
		p, err := c.Me(context.Background())
		require.NoError(err)
		assert.Equal("u2", String(p.ID))
	})

	t.Run("malformed", func(t *testing.T) {
		require := require.New(t)
		c, err := NewGraphClient(testServer(t, token.GraphAudience, `{"id":123}`))
		require.NoError(err)
		_, err = c.Me(context.Background())
		require.ErrorIs(err, ErrMalformedResponse)
	})

	t.Run("nil-resource-client", func(t *testing.T) {
		_, err := NewGraphClient(nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestView_Load(t *testing.T) {
	t.Parallel()

	t.Run("success-then-failure-keeps-profile", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := &Profile{ID: ptr("u1"), DisplayName: ptr("Ada")}
		fail := false
		v, err := NewView(sourceFunc(func(context.Context) (*Profile, error) {
			if fail {
				return nil, errors.New("graph unavailable")
			}
			return want, nil
		}))
		require.NoError(err)

		p, err := v.Load(context.Background())
		require.NoError(err)
		assert.Equal(want, p)
		assert.Equal(ViewState{Profile: want}, v.State())

		fail = true
		_, err = v.Load(context.Background())
		require.Error(err)
		st := v.State()
		assert.Equal(want, st.Profile)
		assert.Contains(st.Error, "graph unavailable")
		assert.False(st.Loading)
	})

	t.Run("malformed-first-load-leaves-profile-nil", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewGraphClient(testServer(t, token.GraphAudience, `{"id":123}`))
		require.NoError(err)
		v, err := NewView(c)
		require.NoError(err)

		_, err = v.Load(context.Background())
		require.ErrorIs(err, ErrMalformedResponse)
		st := v.State()
		assert.Nil(st.Profile)
		assert.NotEmpty(st.Error)
	})

	t.Run("results-after-close-are-dropped", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		started, release := make(chan struct{}), make(chan struct{})
		v, err := NewView(sourceFunc(func(context.Context) (*Profile, error) {
			close(started)
			<-release
			return &Profile{ID: ptr("late")}, nil
		}))
		require.NoError(err)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = v.Load(context.Background())
		}()
		<-started
		assert.True(v.State().Loading)
		v.Close()
		close(release)
		wg.Wait()
		assert.Equal(ViewState{}, v.State())
	})

	t.Run("nil-source", func(t *testing.T) {
		_, err := NewView(nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}
