// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/cap-entra/jwt"
	"github.com/hashicorp/cap-entra/sdk/id"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	claimsKey
	assertionKey
)

// RequestIDFromContext returns the id of the request being served.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ClaimsFromContext returns the verified claims of the caller.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwt.Claims)
	return c, ok
}

func assertionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(assertionKey).(string)
	return v
}

// requestID propagates a safe X-Request-Id from the caller or assigns a new
// one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid, err := id.OrNew(r.Header.Get(RequestIDHeader), "req")
		if err != nil {
			s.logger.Error("unable to generate request id", "error", err)
		}
		w.Header().Set(RequestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

// logRequests logs every request with a level chosen by its status class.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []interface{}{
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"latency", time.Since(start),
			}
			switch {
			case status >= 500:
				s.logger.Error("request failed", args...)
			case status >= 400:
				s.logger.Warn("request rejected", args...)
			default:
				s.logger.Info("request served", args...)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

// authenticate admits callers presenting a valid bearer access token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			renderError(w, r, http.StatusUnauthorized, "Authorization header with Bearer token is required")
			return
		}
		claims, err := s.validator.Validate(r.Context(), raw)
		if err != nil {
			s.logger.Warn("token verification failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
			renderError(w, r, http.StatusUnauthorized, "Invalid access token")
			return
		}
		if scope := s.opts.withRequiredScope; scope != "" && !claims.HasScope(scope) {
			renderError(w, r, http.StatusForbidden, "access token lacks scope "+scope)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, assertionKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
