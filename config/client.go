// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Client configures the console client.
type Client struct {
	ClientID              string        `env:"ENTRA_CLIENT_ID"`
	TenantID              string        `env:"ENTRA_TENANT_ID"`
	AuthorityHost         string        `env:"ENTRA_AUTHORITY_HOST" env-default:"https://login.microsoftonline.com"`
	RedirectURI           string        `env:"ENTRA_REDIRECT_URI" env-default:"http://localhost"`
	PostLogoutRedirectURI string        `env:"ENTRA_POST_LOGOUT_REDIRECT_URI" env-default:"http://localhost"`
	GraphMeEndpoint       string        `env:"GRAPH_ME_ENDPOINT" env-default:"https://graph.microsoft.com/v1.0/me"`
	GraphScopes           []string      `env:"GRAPH_SCOPES" env-default:"https://graph.microsoft.com/User.Read"`
	BackendBaseURL        string        `env:"BACKEND_BASE_URL" env-default:"http://localhost:8000/api"`
	BackendScopes         []string      `env:"BACKEND_SCOPE"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" env-default:"30s"`
	TokenCachePath        string        `env:"TOKEN_CACHE_PATH"`
	LogLevel              string        `env:"LOG_LEVEL" env-default:"info"`
	LogJSON               bool          `env:"LOG_JSON" env-default:"false"`
}

// LoadClient reads the client configuration from the environment. When
// envFile names an existing file its variables are loaded first; variables
// already set in the environment win.
func LoadClient(envFile string) (*Client, error) {
	const op = "config.LoadClient"
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %s: %w: %w", op, envFile, ErrLoad, err)
		}
	}
	var c Client
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLoad, err)
	}
	c.GraphScopes = trimAll(c.GraphScopes)
	c.BackendScopes = trimAll(c.BackendScopes)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// Validate reports every problem with the configuration.
func (c *Client) Validate() error {
	if c == nil {
		return fmt.Errorf("client config is nil: %w", ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("ENTRA_CLIENT_ID is empty: %w", ErrInvalidParameter))
	}
	if c.TenantID == "" {
		result = multierror.Append(result, fmt.Errorf("ENTRA_TENANT_ID is empty: %w", ErrInvalidParameter))
	}
	for _, u := range [][2]string{
		{"ENTRA_AUTHORITY_HOST", c.AuthorityHost},
		{"ENTRA_REDIRECT_URI", c.RedirectURI},
		{"ENTRA_POST_LOGOUT_REDIRECT_URI", c.PostLogoutRedirectURI},
		{"GRAPH_ME_ENDPOINT", c.GraphMeEndpoint},
		{"BACKEND_BASE_URL", c.BackendBaseURL},
	} {
		if err := checkURL(u[0], u[1]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if len(c.GraphScopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("GRAPH_SCOPES is empty: %w", ErrInvalidParameter))
	}
	if len(c.BackendScopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("BACKEND_SCOPE is empty: %w", ErrInvalidParameter))
	}
	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("REQUEST_TIMEOUT must be positive: %w", ErrInvalidParameter))
	}
	if err := checkLevel("LOG_LEVEL", c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Logger returns the root logger described by the configuration.
func (c *Client) Logger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
		Output:     os.Stderr,
	})
}

func checkURL(name, v string) error {
	if v == "" {
		return fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter)
	}
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("%s %q is invalid: %w", name, v, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute http or https url: %w", name, v, ErrInvalidParameter)
	}
	return nil
}

func checkLevel(name, v string) error {
	if hclog.LevelFromString(v) == hclog.NoLevel {
		return fmt.Errorf("%s %q is not a log level: %w", name, v, ErrInvalidParameter)
	}
	return nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
