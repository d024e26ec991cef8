package oidc

import (
	"context"
	"errors"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/darmiel/authnd/internal/authn"
)

// CertificateSource returns the signing certificates currently trusted for a provider.
type CertificateSource interface {
	FetchCertificates(ctx context.Context, providerURI string) (jwk.Set, error)
}

const defaultHTTPTimeout = 10 * time.Second

var _ CertificateSource = (*DiscoveryCertificates)(nil)

// DiscoveryCertificates resolves the JWKS of a provider through its OpenID
// discovery document. Nothing is cached, every call hits the provider.
type DiscoveryCertificates struct {
	httpClient *http.Client
}

func NewDiscoveryCertificates(httpClient *http.Client) *DiscoveryCertificates {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &DiscoveryCertificates{httpClient: httpClient}
}

func (d *DiscoveryCertificates) FetchCertificates(ctx context.Context, providerURI string) (jwk.Set, error) {
	ctx = gooidc.ClientContext(ctx, d.httpClient)

	provider, err := gooidc.NewProvider(ctx, providerURI)
	if err != nil {
		return nil, authn.ProviderDiscoveryFailed(providerURI, err)
	}

	var metadata struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return nil, authn.ProviderDiscoveryFailed(providerURI, err)
	}
	if metadata.JWKSURI == "" {
		return nil, authn.ProviderDiscoveryFailed(providerURI, errors.New("discovery document has no jwks_uri"))
	}

	set, err := jwk.Fetch(ctx, metadata.JWKSURI, jwk.WithHTTPClient(d.httpClient))
	if err != nil {
		return nil, authn.ProviderFetchCertificateFailed(providerURI, err)
	}
	return set, nil
}
