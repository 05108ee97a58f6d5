// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command backend serves the Entra ID protected resource api.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/cap-entra/backend"
	"github.com/hashicorp/cap-entra/config"
	"github.com/hashicorp/cap-entra/entra"
	"github.com/hashicorp/cap-entra/jwt"
	sdkhttp "github.com/hashicorp/cap-entra/sdk/http"
	"github.com/hashicorp/go-hclog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path of the yaml configuration file")
	flag.Parse()

	cfg, err := config.LoadBackend(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger("entra-id-backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("backend stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Backend, logger hclog.Logger) error {
	client, err := sdkhttp.NewClient(
		sdkhttp.WithCAPEM(cfg.EntraID.CAPEM),
		sdkhttp.WithTimeout(cfg.EntraID.ConnectionTimeout),
		sdkhttp.WithUserAgent("cap-entra-backend"),
	)
	if err != nil {
		return fmt.Errorf("unable to create http client: %w", err)
	}

	tenants := make([]jwt.Tenant, 0, len(cfg.EntraID.Tenants))
	for _, t := range cfg.EntraID.Tenants {
		tenants = append(tenants, jwt.Tenant{
			ID:       t.ID,
			Issuer:   t.Issuer,
			Audience: t.Audience,
			JWKSURL:  t.JWKSURI,
		})
	}
	// key sets fetch with client for as long as ctx lives
	validator, err := jwt.NewValidator(sdkhttp.OidcClientContext(ctx, client), tenants,
		jwt.WithLogger(logger),
		jwt.WithCAPEM(cfg.EntraID.CAPEM),
	)
	if err != nil {
		return fmt.Errorf("unable to create token validator: %w", err)
	}

	obo, err := entra.NewConfidentialClient(cfg.ClientCredentials.ClientID, string(cfg.ClientCredentials.ClientSecret),
		entra.WithLogger(logger),
		entra.WithAuthorityHost(cfg.EntraID.AuthorityHost),
		entra.WithHTTPClient(client),
	)
	if err != nil {
		return fmt.Errorf("unable to create on-behalf-of client: %w", err)
	}

	srv, err := backend.NewServer(validator, obo,
		backend.WithLogger(logger),
		backend.WithGraphEndpoint(cfg.Graph.MeEndpoint),
		backend.WithGraphScopes(cfg.Graph.Scopes...),
		backend.WithHTTPClient(client),
	)
	if err != nil {
		return fmt.Errorf("unable to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Web.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "tenants", len(tenants))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Web.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down: %w", err)
	}
	return nil
}
