package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
)

var ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type clientOptions struct {
	withCAPEM     string
	withTimeout   time.Duration
	withUserAgent string
}

func getClientOpts(opt ...Option) clientOptions {
	var opts clientOptions
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithCAPEM provides the root certificates server certificates are verified
// with instead of the system CA chain.
func WithCAPEM(caPEM string) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withCAPEM = caPEM
		}
	}
}

// WithTimeout limits every request made with the client. Zero means no
// timeout.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithUserAgent sets the User-Agent of requests that carry none.
func WithUserAgent(ua string) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withUserAgent = ua
		}
	}
}

// NewClient creates a new http client with a pooled transport. Server
// certificates are verified with the system CA chain unless WithCAPEM is
// given.
//
// Supported options:
//   - WithCAPEM
//   - WithTimeout
//   - WithUserAgent
func NewClient(opt ...Option) (*http.Client, error) {
	const op = "http.NewClient"
	opts := getClientOpts(opt...)
	tr, err := NewTransport(opts.withCAPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var rt http.RoundTripper = tr
	if opts.withUserAgent != "" {
		rt = &userAgentTransport{base: tr, userAgent: opts.withUserAgent}
	}
	return &http.Client{
		Transport: rt,
		Timeout:   opts.withTimeout,
	}, nil
}

// NewTransport returns a pooled transport trusting caPEM, or the system CA
// chain when caPEM is empty. TLS 1.2 is the minimum version.
func NewTransport(caPEM string) (*http.Transport, error) {
	tr := cleanhttp.DefaultPooledTransport()
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.MinVersion = tls.VersionTLS12
	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}
		tr.TLSClientConfig.RootCAs = certPool
	}
	return tr, nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// CloseIdleConnections closes the idle connections of the pooled transport.
func (t *userAgentTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// OidcClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc/v3 and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func OidcClientContext(ctx context.Context, client *http.Client) context.Context {
	return oidc.ClientContext(ctx, client)
}
