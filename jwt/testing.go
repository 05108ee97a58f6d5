// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestKey is an RSA signing key for tests.
type TestKey struct {
	Private *rsa.PrivateKey
	KeyID   string
}

// TestGenerateKey will generate a test RSA signing key with keyID.
func TestGenerateKey(t *testing.T, keyID string) *TestKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &TestKey{Private: priv, KeyID: keyID}
}

// PublicPEM returns the PKIX PEM encoding of the public key.
func (k *TestKey) PublicPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(k.Private.Public())
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// JWK returns the public key as a JSON Web Key.
func (k *TestKey) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.Private.Public(),
		KeyID:     k.KeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}
}

// TestSignJWT will bundle the provided claims into a test JWT signed with
// RS256 by k.
func TestSignJWT(t *testing.T, k *TestKey, claims jwt.Claims, privateClaims interface{}) string {
	t.Helper()
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: k.Private, KeyID: k.KeyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	b := jwt.Signed(sig).Claims(claims)
	if privateClaims != nil {
		b = b.Claims(privateClaims)
	}
	raw, err := b.Serialize()
	require.NoError(t, err)
	return raw
}

// TestAccessToken returns the registered claims of an access token issued
// by issuer for audience that expires in an hour.
func TestAccessToken(issuer, audience string) jwt.Claims {
	now := time.Now()
	return jwt.Claims{
		Issuer:    issuer,
		Subject:   "AAAAAAAAAAAAAAAAAAAAAIkzqFVrSaSaFHy782bbtaQ",
		Audience:  jwt.Audience{audience},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		Expiry:    jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

// TestJWKSServer serves a JSON Web Key Set at /discovery/v2.0/keys and an
// OpenID discovery document at /.well-known/openid-configuration whose
// issuer is the server's url.
type TestJWKSServer struct {
	*httptest.Server

	mu       sync.Mutex
	keys     []jose.JSONWebKey
	requests int
}

// StartTestJWKSServer starts a TestJWKSServer publishing keys. It is closed
// when the test completes.
func StartTestJWKSServer(t *testing.T, keys ...*TestKey) *TestJWKSServer {
	t.Helper()
	s := &TestJWKSServer{}
	s.SetKeys(keys...)
	mux := http.NewServeMux()
	mux.HandleFunc("/discovery/v2.0/keys", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.requests++
		set := jose.JSONWebKeySet{Keys: append([]jose.JSONWebKey(nil), s.keys...)}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                                s.URL,
			"jwks_uri":                              s.JWKSURL(),
			"authorization_endpoint":                s.URL + "/oauth2/v2.0/authorize",
			"token_endpoint":                        s.URL + "/oauth2/v2.0/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// JWKSURL returns the url of the key set.
func (s *TestJWKSServer) JWKSURL() string {
	return s.URL + "/discovery/v2.0/keys"
}

// SetKeys replaces the published keys.
func (s *TestJWKSServer) SetKeys(keys ...*TestKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = s.keys[:0]
	for _, k := range keys {
		s.keys = append(s.keys, k.JWK())
	}
}

// Requests returns the number of key set requests served.
func (s *TestJWKSServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}
