// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-hclog"
)

// Tenant is an Entra ID tenant whose users may call the api.
type Tenant struct {
	// ID is the tenant id, as found in the tid claim.
	ID string

	// Issuer is the exact iss claim of the tenant's tokens.
	Issuer string

	// Audience is the aud claim tokens for this api carry, the api's client
	// id or application id uri.
	Audience string

	// JWKSURL is where the tenant's signing keys are published. When empty
	// the keys are found through the issuer's discovery document.
	JWKSURL string

	// KeySet overrides JWKSURL.
	KeySet KeySet
}

// Claims are the verified claims of an access token.
type Claims struct {
	Audience []string  `json:"-"`
	Issuer   string    `json:"-"`
	Expiry   time.Time `json:"-"`
	Subject  string    `json:"-"`

	ObjectID string   `json:"oid"`
	TenantID string   `json:"tid"`
	Roles    []string `json:"roles"`
	Scope    string   `json:"scp"`
	Name     string   `json:"name"`
	Username string   `json:"preferred_username"`
}

// Scopes returns the delegated permissions granted to the token.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes() {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

type tenantVerifier struct {
	tenant   Tenant
	verifier *oidc.IDTokenVerifier
}

// Validator verifies access tokens of a fixed set of tenants.
type Validator struct {
	tenants map[string]*tenantVerifier
	algs    []jose.SignatureAlgorithm
	logger  hclog.Logger
}

// NewValidator creates a Validator for tenants. Remote key sets are created
// with ctx, which must outlive the Validator.
//
// Supported options:
//   - WithLogger
//   - WithSupportedAlgorithms
//   - WithNow
//   - WithCAPEM
func NewValidator(ctx context.Context, tenants []Tenant, opt ...Option) (*Validator, error) {
	const op = "NewValidator"
	if len(tenants) == 0 {
		return nil, fmt.Errorf("%s: no tenants: %w", op, ErrInvalidParameter)
	}
	opts := getValidatorOpts(opt...)
	algs := make([]string, 0, len(opts.withAlgorithms))
	for _, a := range opts.withAlgorithms {
		algs = append(algs, string(a))
	}

	v := &Validator{
		tenants: make(map[string]*tenantVerifier, len(tenants)),
		algs:    opts.withAlgorithms,
		logger:  opts.withLogger.Named("jwt"),
	}
	for _, t := range tenants {
		switch {
		case t.ID == "":
			return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
		case t.Issuer == "":
			return nil, fmt.Errorf("%s: tenant %s: issuer is empty: %w", op, t.ID, ErrInvalidParameter)
		case t.Audience == "":
			return nil, fmt.Errorf("%s: tenant %s: audience is empty: %w", op, t.ID, ErrInvalidParameter)
		}
		key := strings.ToLower(t.ID)
		if _, dup := v.tenants[key]; dup {
			return nil, fmt.Errorf("%s: tenant %s listed twice: %w", op, t.ID, ErrInvalidParameter)
		}
		ks := t.KeySet
		if ks == nil {
			var err error
			if t.JWKSURL != "" {
				ks, err = NewJSONWebKeySet(ctx, t.JWKSURL, opts.withCAPEM)
			} else {
				ks, err = NewOIDCDiscoveryKeySet(ctx, t.Issuer, opts.withCAPEM)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: tenant %s: %w", op, t.ID, err)
			}
		}
		v.tenants[key] = &tenantVerifier{
			tenant: t,
			verifier: oidc.NewVerifier(t.Issuer, ks, &oidc.Config{
				ClientID:             t.Audience,
				SupportedSigningAlgs: algs,
				Now:                  opts.withNow,
			}),
		}
	}
	return v, nil
}

// Validate verifies raw and returns its claims. The tenant is chosen by the
// token's tid claim, or by the tenant id in its iss claim when tid is
// absent; the signature, issuer, audience and expiry are then checked
// against that tenant.
func (v *Validator) Validate(ctx context.Context, raw string) (*Claims, error) {
	const op = "Validator.Validate"
	if raw == "" {
		return nil, fmt.Errorf("%s: token is empty: %w", op, ErrInvalidToken)
	}
	tenantID, err := v.tenantOf(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tv, ok := v.tenants[strings.ToLower(tenantID)]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", op, tenantID, ErrTenantNotFound)
	}

	idt, err := tv.verifier.Verify(ctx, raw)
	if err != nil {
		v.logger.Debug("token verification failed", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	var c Claims
	if err := idt.Claims(&c); err != nil {
		return nil, fmt.Errorf("%s: unable to read claims: %w: %w", op, ErrInvalidToken, err)
	}
	c.Audience = idt.Audience
	c.Issuer = idt.Issuer
	c.Expiry = idt.Expiry
	c.Subject = idt.Subject
	if c.TenantID == "" {
		c.TenantID = tenantID
	}
	return &c, nil
}

// tenantOf returns the tenant id named by the unverified claims of raw.
func (v *Validator) tenantOf(raw string) (string, error) {
	tok, err := jwt.ParseSigned(raw, v.algs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	var unverified struct {
		Issuer   string `json:"iss"`
		TenantID string `json:"tid"`
	}
	if err := tok.UnsafeClaimsWithoutVerification(&unverified); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if unverified.TenantID != "" {
		return unverified.TenantID, nil
	}
	if unverified.Issuer == "" {
		return "", fmt.Errorf("token has neither tid nor iss: %w", ErrInvalidToken)
	}
	return TenantIDFromIssuer(unverified.Issuer)
}
