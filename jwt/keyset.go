// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	sdkhttp "github.com/hashicorp/cap-entra/sdk/http"
)

// KeySet represents a set of keys that can be used to verify the signatures
// of JWTs. A KeySet is expected to be backed by a set of local or remote
// keys. Every KeySet satisfies oidc.KeySet.
type KeySet interface {
	// VerifySignature parses the given JWT, verifies its signature, and
	// returns its payload.
	VerifySignature(ctx context.Context, token string) (payload []byte, err error)
}

var (
	_ oidc.KeySet = (KeySet)(nil)
	_ KeySet      = (*JSONWebKeySet)(nil)
	_ KeySet      = (*StaticKeySet)(nil)
)

// JSONWebKeySet verifies JWT signatures using keys obtained from a JWKS URL.
// Keys are cached and fetched again when a token names an unknown key id.
type JSONWebKeySet struct {
	remoteJWKS *oidc.RemoteKeySet
}

// StaticKeySet verifies JWT signatures using local PEM-encoded public keys.
type StaticKeySet struct {
	publicKeys []interface{}
	algs       []jose.SignatureAlgorithm
}

// NewJSONWebKeySet returns a KeySet that verifies JWT signatures using keys
// from the JSON Web Key Set (JWKS) at the given jwksURL. The client used to
// obtain the remote JWKS will verify server certificates using the root
// certificates provided by jwksCAPEM. ctx must outlive the KeySet.
func NewJSONWebKeySet(ctx context.Context, jwksURL string, jwksCAPEM string) (*JSONWebKeySet, error) {
	const op = "NewJSONWebKeySet"
	if jwksURL == "" {
		return nil, fmt.Errorf("%s: jwks url is empty: %w", op, ErrInvalidParameter)
	}
	caCtx, err := createCAContext(ctx, jwksCAPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &JSONWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, jwksURL),
	}, nil
}

// NewOIDCDiscoveryKeySet returns a JSONWebKeySet for the jwks_uri published
// in the OpenID discovery document of issuer.
func NewOIDCDiscoveryKeySet(ctx context.Context, issuer string, discoveryCAPEM string) (*JSONWebKeySet, error) {
	const op = "NewOIDCDiscoveryKeySet"
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	caCtx, err := createCAContext(ctx, discoveryCAPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	provider, err := oidc.NewProvider(caCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	var doc struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&doc); err != nil {
		return nil, fmt.Errorf("%s: unable to read discovery document: %w", op, err)
	}
	if doc.JWKSURL == "" {
		return nil, fmt.Errorf("%s: discovery document has no jwks_uri: %w", op, ErrInvalidParameter)
	}
	return &JSONWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, doc.JWKSURL),
	}, nil
}

// VerifySignature verifies the signature of the given JWT using JWKS keys
// and returns its payload. The given JWT must be of the JWS compact
// serialization form.
func (ks *JSONWebKeySet) VerifySignature(ctx context.Context, token string) ([]byte, error) {
	return ks.remoteJWKS.VerifySignature(ctx, token)
}

// NewStaticKeySet returns a KeySet that verifies JWT signatures using
// PEM-encoded public keys. The given publicKeys must be of PEM-encoded x509
// certificate or PKIX public key forms.
func NewStaticKeySet(publicKeys []string) (*StaticKeySet, error) {
	const op = "NewStaticKeySet"
	parsed := make([]interface{}, 0, len(publicKeys))
	for _, k := range publicKeys {
		key, err := ParsePublicKeyPEM([]byte(k))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		parsed = append(parsed, key)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoValidPublicKeys)
	}
	return &StaticKeySet{
		publicKeys: parsed,
		algs:       supportedAlgorithms(),
	}, nil
}

// VerifySignature verifies the signature of the given JWT using local
// PEM-encoded public keys and returns its payload. The given JWT must be of
// the JWS compact serialization form.
func (ks *StaticKeySet) VerifySignature(_ context.Context, token string) ([]byte, error) {
	const op = "StaticKeySet.VerifySignature"
	jws, err := jose.ParseSigned(token, ks.algs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	for _, key := range ks.publicKeys {
		if payload, err := jws.Verify(key); err == nil {
			return payload, nil
		}
	}
	return nil, fmt.Errorf("%s: no known key successfully validated the token signature: %w", op, ErrInvalidToken)
}

// ParsePublicKeyPEM is used to parse RSA and ECDSA public keys from PEMs.
// It returns a *rsa.PublicKey or *ecdsa.PublicKey.
func ParsePublicKeyPEM(data []byte) (interface{}, error) {
	block, _ := pem.Decode(data)
	if block != nil {
		var rawKey interface{}
		var err error
		if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
			if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
				rawKey = cert.PublicKey
			} else {
				return nil, err
			}
		}

		if rsaPublicKey, ok := rawKey.(*rsa.PublicKey); ok {
			return rsaPublicKey, nil
		}
		if ecPublicKey, ok := rawKey.(*ecdsa.PublicKey); ok {
			return ecPublicKey, nil
		}
	}

	return nil, ErrNoValidPublicKeys
}

// createCAContext returns a context carrying a pooled http client that's
// configured with the root certificates from caPEM. If no certificates are
// configured, the original context is returned.
func createCAContext(ctx context.Context, caPEM string) (context.Context, error) {
	if caPEM == "" {
		return ctx, nil
	}
	client, err := sdkhttp.NewClient(sdkhttp.WithCAPEM(caPEM))
	if err != nil {
		if errors.Is(err, sdkhttp.ErrInvalidCertificatePem) {
			return nil, ErrInvalidCACert
		}
		return nil, err
	}
	return sdkhttp.OidcClientContext(ctx, client), nil
}
