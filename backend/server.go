// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/cap-entra/jwt"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// TokenValidator validates the access tokens presented to the api.
// *jwt.Validator is a TokenValidator.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*jwt.Claims, error)
}

// OnBehalfOf exchanges an access token issued to the api for a downstream
// token. *entra.ConfidentialClient is an OnBehalfOf.
type OnBehalfOf interface {
	AcquireTokenOnBehalfOf(ctx context.Context, tenantID, assertion string, scopes []string) (*oauth2.Token, error)
}

var _ TokenValidator = (*jwt.Validator)(nil)

// Server is the http.Handler of the resource server.
type Server struct {
	router    chi.Router
	validator TokenValidator
	obo       OnBehalfOf
	opts      serverOptions
	logger    hclog.Logger
}

// NewServer creates a Server that authenticates callers with v and reaches
// Graph through obo.
//
// Supported options:
//   - WithLogger
//   - WithGraphEndpoint
//   - WithGraphScopes
//   - WithHTTPClient
//   - WithRequiredScope
func NewServer(v TokenValidator, obo OnBehalfOf, opt ...Option) (*Server, error) {
	const op = "backend.NewServer"
	switch {
	case v == nil:
		return nil, fmt.Errorf("%s: token validator is nil: %w", op, ErrNilParameter)
	case obo == nil:
		return nil, fmt.Errorf("%s: on-behalf-of client is nil: %w", op, ErrNilParameter)
	}
	opts := getServerOpts(opt...)
	s := &Server{
		validator: v,
		obo:       obo,
		opts:      opts,
		logger:    opts.withLogger.Named("backend"),
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/health-check", s.healthCheck)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/me", s.me)
		})
	})
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
