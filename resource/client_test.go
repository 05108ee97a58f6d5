// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/cap-entra/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	fetcher := testFetcher(t, token.NewTestFacade())
	tests := []struct {
		name      string
		baseURL   string
		fetcher   *token.Fetcher
		wantErrIs error
	}{
		{name: "valid", baseURL: "http://localhost:8000/api", fetcher: fetcher},
		{name: "nil-fetcher", baseURL: "http://localhost:8000/api", wantErrIs: ErrNilParameter},
		{name: "relative", baseURL: "/api", fetcher: fetcher, wantErrIs: ErrInvalidParameter},
		{name: "bad-scheme", baseURL: "ftp://example.com", fetcher: fetcher, wantErrIs: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewClient(tt.baseURL, tt.fetcher)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c.HTTPClient())
		})
	}
}

func TestClient_URL(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c, err := NewClient("http://localhost:8000/api", testFetcher(t, token.NewTestFacade()))
	require.NoError(err)
	assert.Equal("http://localhost:8000/api/me", c.URL("/me"))
	assert.Equal("http://localhost:8000/api/me", c.URL("me"))
	assert.Equal("http://localhost:8000/api", c.URL(""))
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := newRecorder(t)
		c, err := NewClient(srv.srv.URL, testFetcher(t, token.NewTestFacade(token.TestAccount)))
		require.NoError(err)
		raw, err := c.Get(context.Background(), "/me")
		require.NoError(err)
		assert.JSONEq(`{"id":"u1"}`, string(raw))
	})

	tests := []struct {
		name      string
		status    int
		wantErrIs error
		wantHits  int32
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErrIs: ErrUnauthorized, wantHits: 2},
		{name: "forbidden", status: http.StatusForbidden, wantErrIs: ErrForbidden, wantHits: 1},
		{name: "server-error", status: http.StatusInternalServerError, wantErrIs: ErrUnexpectedStatus, wantHits: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			srv := newRecorder(t, tt.status, tt.status)
			c, err := NewClient(srv.srv.URL, testFetcher(t, token.NewTestFacade(token.TestAccount)))
			require.NoError(err)
			raw, err := c.Get(context.Background(), "/me")
			require.Error(err)
			assert.Nil(raw)
			assert.ErrorIs(err, tt.wantErrIs)
			var se *StatusError
			require.True(errors.As(err, &se))
			assert.Equal(tt.status, se.StatusCode)
			assert.Equal(tt.wantHits, srv.hits.Load())
		})
	}

	t.Run("timeout", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(block)
			srv.Close()
		})
		c, err := NewClient(srv.URL, testFetcher(t, token.NewTestFacade()), WithTimeout(50*time.Millisecond))
		require.NoError(err)
		_, err = c.Get(context.Background(), "/slow")
		require.Error(err)
		assert.ErrorIs(err, context.DeadlineExceeded)
	})
}
