// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/render"
	"github.com/hashicorp/cap-entra/profile"
	"golang.org/x/oauth2"
)

// HealthResponse is the body of /api/health-check.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		renderError(w, r, http.StatusUnauthorized, "Bearer token not found")
		return
	}
	logger := s.logger.With("request_id", RequestIDFromContext(ctx), "tenant_id", claims.TenantID)

	tok, err := s.obo.AcquireTokenOnBehalfOf(ctx, claims.TenantID, assertionFromContext(ctx), s.opts.withGraphScopes)
	if err != nil {
		logger.Error("unable to acquire graph token on behalf of caller", "error", err)
		renderError(w, r, http.StatusBadGateway, fmt.Sprintf("Failed to request Graph API access token: %s", err))
		return
	}

	p, err := s.graphMe(ctx, tok)
	if err != nil {
		logger.Error("unable to read graph profile", "error", err)
		renderError(w, r, http.StatusBadGateway, fmt.Sprintf("Failed to call Graph API: %s", err))
		return
	}
	render.JSON(w, r, p)
}

// graphMe reads the profile of the caller tok was issued for.
func (s *Server) graphMe(ctx context.Context, tok *oauth2.Token) (*profile.Profile, error) {
	const op = "Server.graphMe"
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.opts.withHTTPClient), oauth2.StaticTokenSource(tok))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.withGraphEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.withMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %d %s: %w", op, resp.StatusCode, body, ErrGraphStatus)
	}
	return profile.Decode(body, profile.WithLogger(s.logger))
}
