// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// oboClient is the part of the MSAL confidential client ConfidentialClient
// uses.
type oboClient interface {
	onBehalfOf(ctx context.Context, assertion string, scopes []string) (confidential.AuthResult, error)
}

// oboFactory creates an oboClient for an authority.
type oboFactory func(authority string) (oboClient, error)

type msalConfidential struct {
	client confidential.Client
}

func (m *msalConfidential) onBehalfOf(ctx context.Context, assertion string, scopes []string) (confidential.AuthResult, error) {
	return m.client.AcquireTokenOnBehalfOf(ctx, assertion, scopes)
}

// ConfidentialClient exchanges access tokens issued to a web api for
// downstream tokens with the on-behalf-of flow. One MSAL client is kept per
// tenant, so users of several tenants can be served.
type ConfidentialClient struct {
	clientID string
	host     string
	factory  oboFactory
	logger   hclog.Logger

	mu      sync.Mutex
	clients map[string]oboClient
}

// NewConfidentialClient creates a ConfidentialClient for the web api
// clientID authenticating with secret.
//
// Supported options:
//   - WithLogger
//   - WithAuthorityHost
//   - WithHTTPClient
func NewConfidentialClient(clientID, secret string, opt ...Option) (*ConfidentialClient, error) {
	const op = "NewConfidentialClient"
	clientID = strings.TrimSpace(clientID)
	switch {
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case secret == "":
		return nil, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	factory := opts.withOBOFactory
	if factory == nil {
		cred, err := confidential.NewCredFromSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create credential: %w", op, err)
		}
		factory = func(authority string) (oboClient, error) {
			var msalOpts []confidential.Option
			if opts.withHTTPClient != nil {
				msalOpts = append(msalOpts, confidential.WithHTTPClient(opts.withHTTPClient))
			}
			c, err := confidential.New(authority, clientID, cred, msalOpts...)
			if err != nil {
				return nil, err
			}
			return &msalConfidential{client: c}, nil
		}
	}
	return &ConfidentialClient{
		clientID: clientID,
		host:     opts.withAuthorityHost,
		factory:  factory,
		logger:   opts.withLogger.Named("obo"),
		clients:  map[string]oboClient{},
	}, nil
}

// AcquireTokenOnBehalfOf exchanges assertion, an access token issued to this
// api by tenantID, for a token carrying scopes.
func (c *ConfidentialClient) AcquireTokenOnBehalfOf(ctx context.Context, tenantID, assertion string, scopes []string) (*oauth2.Token, error) {
	const op = "ConfidentialClient.AcquireTokenOnBehalfOf"
	switch {
	case tenantID == "":
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	case assertion == "":
		return nil, fmt.Errorf("%s: assertion is empty: %w", op, ErrInvalidParameter)
	case len(scopes) == 0:
		return nil, fmt.Errorf("%s: scopes are empty: %w", op, ErrInvalidParameter)
	}
	client, err := c.client(tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := client.onBehalfOf(ctx, assertion, scopes)
	if err != nil {
		c.logger.Error("on-behalf-of exchange failed", "tenant_id", tenantID, "scopes", scopes, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &oauth2.Token{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		Expiry:      res.ExpiresOn,
	}, nil
}

func (c *ConfidentialClient) client(tenantID string) (oboClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[tenantID]; ok {
		return client, nil
	}
	authority, err := url.JoinPath(c.host, tenantID)
	if err != nil {
		return nil, fmt.Errorf("unable to build authority: %w", err)
	}
	client, err := c.factory(authority)
	if err != nil {
		return nil, fmt.Errorf("unable to create msal client: %w", err)
	}
	c.clients[tenantID] = client
	return client, nil
}
