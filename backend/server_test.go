// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/cap-entra/jwt"
	"github.com/hashicorp/cap-entra/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testTenantID = "11111111-1111-1111-1111-111111111111"
	testAudience = "api://cap-entra-backend"
	testIssuer   = "https://login.microsoftonline.com/" + testTenantID + "/v2.0"
)

type fakeOBO struct {
	mu        sync.Mutex
	err       error
	calls     int
	tenantID  string
	assertion string
	scopes    []string
}

func (f *fakeOBO) AcquireTokenOnBehalfOf(_ context.Context, tenantID, assertion string, scopes []string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tenantID, f.assertion, f.scopes = tenantID, assertion, scopes
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "graph-token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

type testEnv struct {
	key    *jwt.TestKey
	obo    *fakeOBO
	graph  *httptest.Server
	server *Server

	mu          sync.Mutex
	graphStatus int
	graphBody   string
	graphAuth   string
}

func newTestEnv(t *testing.T, opt ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		key:         jwt.TestGenerateKey(t, "key-1"),
		obo:         &fakeOBO{},
		graphStatus: http.StatusOK,
		graphBody:   `{"id":"u1","displayName":"Ada","businessPhones":["+1 555 0100"]}`,
	}
	env.graph = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.graphAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(env.graphStatus)
		_, _ = w.Write([]byte(env.graphBody))
	}))
	t.Cleanup(env.graph.Close)

	ks, err := jwt.NewStaticKeySet([]string{env.key.PublicPEM(t)})
	require.NoError(t, err)
	v, err := jwt.NewValidator(context.Background(), []jwt.Tenant{
		{ID: testTenantID, Issuer: testIssuer, Audience: testAudience, KeySet: ks},
	})
	require.NoError(t, err)

	opt = append([]Option{WithGraphEndpoint(env.graph.URL + "/v1.0/me")}, opt...)
	env.server, err = NewServer(v, env.obo, opt...)
	require.NoError(t, err)
	return env
}

func (env *testEnv) token(t *testing.T, scope string) string {
	t.Helper()
	return jwt.TestSignJWT(t, env.key, jwt.TestAccessToken(testIssuer, testAudience), map[string]interface{}{
		"tid": testTenantID,
		"oid": "00000000-0000-0000-0000-000000000001",
		"scp": scope,
	})
}

func (env *testEnv) get(t *testing.T, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestNewServer(t *testing.T) {
	t.Parallel()
	_, err := NewServer(nil, &fakeOBO{})
	require.ErrorIs(t, err, ErrNilParameter)
	v := &jwt.Validator{}
	_, err = NewServer(v, nil)
	require.ErrorIs(t, err, ErrNilParameter)
}

func TestServerDefaults(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	opts := getServerOpts()
	require.NotNil(opts.withHTTPClient)
	assert.NotSame(http.DefaultClient, opts.withHTTPClient)
	assert.IsType(&http.Transport{}, opts.withHTTPClient.Transport)
	assert.NotSame(http.DefaultTransport, opts.withHTTPClient.Transport)
	assert.NotSame(opts.withHTTPClient, getServerOpts().withHTTPClient)

	c := &http.Client{}
	assert.Same(c, getServerOpts(WithHTTPClient(c)).withHTTPClient)
}

func TestServer_HealthCheck(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	env := newTestEnv(t)

	rec := env.get(t, "/api/health-check", "")
	require.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(rec.Header().Get(RequestIDHeader))
}

func TestServer_RequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health-check", nil)
	req.Header.Set(RequestIDHeader, "req_from_caller")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, "req_from_caller", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/health-check", nil)
	req.Header.Set(RequestIDHeader, "forged level=error")
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	got := rec.Header().Get(RequestIDHeader)
	assert.NotEqual(t, "forged level=error", got)
	assert.True(t, strings.HasPrefix(got, "req_"))
}

func TestServer_Me(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		env := newTestEnv(t)
		raw := env.token(t, "access_as_user")

		rec := env.get(t, "/api/me", "Bearer "+raw)
		require.Equal(http.StatusOK, rec.Code, rec.Body.String())
		var p profile.Profile
		require.NoError(json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal("u1", profile.String(p.ID))
		assert.Equal("Ada", profile.String(p.DisplayName))
		assert.Equal([]string{"+1 555 0100"}, p.BusinessPhones)

		assert.Equal(1, env.obo.calls)
		assert.Equal(testTenantID, env.obo.tenantID)
		assert.Equal(raw, env.obo.assertion)
		assert.Equal([]string{DefaultGraphScope}, env.obo.scopes)
		env.mu.Lock()
		assert.Equal("Bearer graph-token", env.graphAuth)
		env.mu.Unlock()
	})

	tests := []struct {
		name          string
		authorization func(env *testEnv) string
		setup         func(env *testEnv)
		opt           []Option
		wantCode      int
		wantOBOCalls  int
	}{
		{
			name:          "missing-header",
			authorization: func(*testEnv) string { return "" },
			wantCode:      http.StatusUnauthorized,
		},
		{
			name:          "not-bearer",
			authorization: func(*testEnv) string { return "Basic dXNlcjpwYXNz" },
			wantCode:      http.StatusUnauthorized,
		},
		{
			name:          "empty-bearer",
			authorization: func(*testEnv) string { return "Bearer " },
			wantCode:      http.StatusUnauthorized,
		},
		{
			name:          "invalid-token",
			authorization: func(*testEnv) string { return "Bearer not.a.token" },
			wantCode:      http.StatusUnauthorized,
		},
		{
			name: "token-for-other-audience",
			authorization: func(env *testEnv) string {
				return "Bearer " + jwt.TestSignJWT(t, env.key, jwt.TestAccessToken(testIssuer, "api://other"), map[string]interface{}{"tid": testTenantID})
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:          "missing-required-scope",
			authorization: func(env *testEnv) string { return "Bearer " + env.token(t, "User.Read") },
			opt:           []Option{WithRequiredScope("access_as_user")},
			wantCode:      http.StatusForbidden,
		},
		{
			name:          "obo-failure",
			authorization: func(env *testEnv) string { return "Bearer " + env.token(t, "access_as_user") },
			setup:         func(env *testEnv) { env.obo.err = errors.New("AADSTS65001: consent required") },
			wantCode:      http.StatusBadGateway,
			wantOBOCalls:  1,
		},
		{
			name:          "graph-error-status",
			authorization: func(env *testEnv) string { return "Bearer " + env.token(t, "access_as_user") },
			setup: func(env *testEnv) {
				env.graphStatus = http.StatusForbidden
				env.graphBody = `{"error":{"code":"Authorization_RequestDenied"}}`
			},
			wantCode:     http.StatusBadGateway,
			wantOBOCalls: 1,
		},
		{
			name:          "graph-malformed-profile",
			authorization: func(env *testEnv) string { return "Bearer " + env.token(t, "access_as_user") },
			setup:         func(env *testEnv) { env.graphBody = `{"id":123}` },
			wantCode:      http.StatusBadGateway,
			wantOBOCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			env := newTestEnv(t, tt.opt...)
			if tt.setup != nil {
				tt.setup(env)
			}
			rec := env.get(t, "/api/me", tt.authorization(env))
			require.Equal(tt.wantCode, rec.Code, rec.Body.String())
			e := decodeError(t, rec)
			assert.Equal(tt.wantCode, e.Code)
			assert.NotEmpty(e.Message)
			assert.Equal(tt.wantOBOCalls, env.obo.calls)
		})
	}
}

func TestServer_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := env.get(t, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer  abc ", want: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Basic abc", ok: false},
		{header: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
