// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
)

// Backend configures the backend resource server.
type Backend struct {
	LogLevel          string            `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogJSON           bool              `yaml:"log_json" env:"LOG_JSON"`
	Web               Web               `yaml:"web"`
	EntraID           EntraID           `yaml:"entra_id"`
	ClientCredentials ClientCredentials `yaml:"client_credentials"`
	Graph             Graph             `yaml:"graph"`
}

// Web configures the listener.
type Web struct {
	Host            string        `yaml:"host" env:"WEB_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"WEB_PORT" env-default:"8000"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"WEB_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns the listen address.
func (w Web) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// EntraID lists the tenants whose users may call the api.
type EntraID struct {
	AuthorityHost     string        `yaml:"authority_host" env:"ENTRA_AUTHORITY_HOST" env-default:"https://login.microsoftonline.com"`
	Tenants           []Tenant      `yaml:"tenants"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"ENTRA_CONNECTION_TIMEOUT" env-default:"10s"`
	CAPEM             string        `yaml:"ca_pem" env:"ENTRA_CA_PEM"`
}

// Tenant is a trusted Entra ID tenant.
type Tenant struct {
	ID       string `yaml:"id"`
	JWKSURI  string `yaml:"jwks_uri"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// ClientCredentials are the api's own credentials, used for on-behalf-of
// exchanges.
type ClientCredentials struct {
	ClientID     string       `yaml:"client_id" env:"ENTRA_CLIENT_ID"`
	ClientSecret ClientSecret `yaml:"client_secret" env:"ENTRA_CLIENT_SECRET"`
}

// Graph is the downstream profile resource.
type Graph struct {
	MeEndpoint string   `yaml:"me_endpoint" env:"GRAPH_ME_ENDPOINT" env-default:"https://graph.microsoft.com/v1.0/me"`
	Scopes     []string `yaml:"scopes" env:"GRAPH_SCOPES" env-default:"https://graph.microsoft.com/User.Read"`
}

// LoadBackend reads the backend configuration from the YAML file at path.
// Environment variables override the file.
func LoadBackend(path string) (*Backend, error) {
	const op = "config.LoadBackend"
	if path == "" {
		return nil, fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	var b Backend
	if err := cleanenv.ReadConfig(path, &b); err != nil {
		return nil, fmt.Errorf("%s: %s: %w: %w", op, path, ErrLoad, err)
	}
	b.Graph.Scopes = trimAll(b.Graph.Scopes)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}

// Validate reports every problem with the configuration.
func (b *Backend) Validate() error {
	if b == nil {
		return fmt.Errorf("backend config is nil: %w", ErrNilParameter)
	}
	var result *multierror.Error
	if err := checkLevel("log_level", b.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if b.Web.Port <= 0 || b.Web.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("web.port %d is out of range: %w", b.Web.Port, ErrInvalidParameter))
	}
	if err := checkURL("entra_id.authority_host", b.EntraID.AuthorityHost); err != nil {
		result = multierror.Append(result, err)
	}
	if len(b.EntraID.Tenants) == 0 {
		result = multierror.Append(result, fmt.Errorf("entra_id.tenants is empty: %w", ErrInvalidParameter))
	}
	seen := make(map[string]struct{}, len(b.EntraID.Tenants))
	for i, t := range b.EntraID.Tenants {
		field := fmt.Sprintf("entra_id.tenants[%d]", i)
		if t.ID == "" {
			result = multierror.Append(result, fmt.Errorf("%s.id is empty: %w", field, ErrInvalidParameter))
		}
		if _, dup := seen[strings.ToLower(t.ID)]; dup && t.ID != "" {
			result = multierror.Append(result, fmt.Errorf("%s.id %s is listed twice: %w", field, t.ID, ErrInvalidParameter))
		}
		seen[strings.ToLower(t.ID)] = struct{}{}
		if err := checkURL(field+".issuer", t.Issuer); err != nil {
			result = multierror.Append(result, err)
		}
		if t.JWKSURI != "" {
			if err := checkURL(field+".jwks_uri", t.JWKSURI); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if t.Audience == "" {
			result = multierror.Append(result, fmt.Errorf("%s.audience is empty: %w", field, ErrInvalidParameter))
		}
	}
	if b.EntraID.ConnectionTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("entra_id.connection_timeout must be positive: %w", ErrInvalidParameter))
	}
	if b.ClientCredentials.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client_credentials.client_id is empty: %w", ErrInvalidParameter))
	}
	if b.ClientCredentials.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client_credentials.client_secret is empty: %w", ErrInvalidParameter))
	}
	if err := checkURL("graph.me_endpoint", b.Graph.MeEndpoint); err != nil {
		result = multierror.Append(result, err)
	}
	if len(b.Graph.Scopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("graph.scopes is empty: %w", ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// Logger returns the root logger described by the configuration.
func (b *Backend) Logger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(b.LogLevel),
		JSONFormat: b.LogJSON,
		Output:     os.Stderr,
	})
}
