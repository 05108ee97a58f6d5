// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command client signs a user in with Entra ID and calls Microsoft Graph and
// the backend api on their behalf.
//
//	client [-env .env] login|logout|status|profile|me
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hashicorp/cap-entra/config"
	"github.com/hashicorp/cap-entra/entra"
	"github.com/hashicorp/cap-entra/profile"
	"github.com/hashicorp/cap-entra/resource"
	sdkhttp "github.com/hashicorp/cap-entra/sdk/http"
	"github.com/hashicorp/cap-entra/session"
	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-hclog"
)

const usage = `usage: client [-env file] <command>

commands:
  login    sign in interactively
  logout   sign out of the active account
  status   show the session
  profile  show the Microsoft Graph profile
  me       show the profile as returned by the backend api
`

func main() {
	envFile := flag.String("env", ".env", "optional file of environment variables")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger("entra-id-client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if err := a.run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

type app struct {
	facade  *entra.PublicClient
	monitor *session.Monitor
	graph   *profile.Client
	backend *profile.Client
	logger  hclog.Logger
}

func newApp(cfg *config.Client, logger hclog.Logger) (*app, error) {
	httpClient, err := sdkhttp.NewClient(sdkhttp.WithTimeout(cfg.RequestTimeout), sdkhttp.WithUserAgent("cap-entra-client"))
	if err != nil {
		return nil, err
	}
	cachePath := cfg.TokenCachePath
	if cachePath == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find a cache directory, set TOKEN_CACHE_PATH: %w", err)
		}
		cachePath = filepath.Join(dir, "cap-entra", "msal_cache.json")
	}
	fileCache, err := entra.NewFileCache(cachePath, entra.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	facade, err := entra.NewPublicClient(cfg.TenantID, cfg.ClientID,
		entra.WithLogger(logger),
		entra.WithAuthorityHost(cfg.AuthorityHost),
		entra.WithRedirectURI(cfg.RedirectURI),
		entra.WithPostLogoutRedirectURI(cfg.PostLogoutRedirectURI),
		entra.WithCache(fileCache),
		entra.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	graphScopes, err := token.NewScopes(token.GraphAudience, cfg.GraphScopes...)
	if err != nil {
		return nil, fmt.Errorf("GRAPH_SCOPES: %w", err)
	}
	backendScopes, err := token.NewScopes(audienceOf(cfg.BackendScopes), cfg.BackendScopes...)
	if err != nil {
		return nil, fmt.Errorf("BACKEND_SCOPE: %w", err)
	}
	graphFetcher, err := token.NewFetcher(facade, graphScopes, token.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	backendFetcher, err := token.NewFetcher(facade, backendScopes, token.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	resourceOpts := []resource.Option{
		resource.WithLogger(logger),
		resource.WithBaseTransport(httpClient.Transport),
		resource.WithTimeout(cfg.RequestTimeout),
	}
	graphRC, err := resource.NewClient(cfg.GraphMeEndpoint, graphFetcher, resourceOpts...)
	if err != nil {
		return nil, err
	}
	backendRC, err := resource.NewClient(cfg.BackendBaseURL, backendFetcher, resourceOpts...)
	if err != nil {
		return nil, err
	}
	graph, err := profile.NewGraphClient(graphRC, profile.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	backend, err := profile.NewBackendClient(backendRC, profile.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	monitor, err := session.New(facade, graphFetcher, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &app{
		facade:  facade,
		monitor: monitor,
		graph:   graph,
		backend: backend,
		logger:  logger,
	}, nil
}

func (a *app) run(ctx context.Context, command string) error {
	a.monitor.Mount(ctx)
	defer a.monitor.Unmount()

	switch command {
	case "status":
		return printJSON(a.status())
	case "login":
		a.monitor.Login(ctx)
		s := a.monitor.State()
		if s.Error != "" {
			return errors.New(s.Error)
		}
		return printJSON(a.status())
	case "logout":
		a.monitor.Logout(ctx)
		if s := a.monitor.State(); s.Error != "" {
			return errors.New(s.Error)
		}
		fmt.Println("signed out")
		return nil
	case "profile":
		return a.show(ctx, a.graph)
	case "me":
		return a.show(ctx, a.backend)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

type status struct {
	session.State
	Account string `json:"account,omitempty"`
}

func (a *app) status() status {
	s := status{State: a.monitor.State()}
	if acct, ok := a.facade.ActiveAccount(); ok {
		s.Account = acct.Username
	}
	return s
}

// show loads the profile from src. An interactive sign-in started on the way
// completes before returning here, so the load is repeated once after it.
func (a *app) show(ctx context.Context, src profile.Source) error {
	view, err := profile.NewView(src, profile.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer view.Close()

	p, err := view.Load(ctx)
	if errors.Is(err, token.ErrRedirectInitiated) {
		a.logger.Debug("signed in interactively, loading the profile again")
		p, err = view.Load(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(p)
}

// audienceOf returns the resource the first fully-qualified scope names.
func audienceOf(scopes []string) string {
	for _, s := range scopes {
		if i := strings.LastIndex(s, "/"); i > 0 && !strings.HasSuffix(s[:i+1], "://") {
			return s[:i]
		}
	}
	return token.GraphAudience
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
