package oidc

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
)

// Type is the authenticator type handled by this package.
const Type = "authn-oidc"

// Variables every authn-oidc webservice needs, relative to its policy branch.
const (
	VariableProviderURI         = "provider-uri"
	VariableIDTokenUserProperty = "id-token-user-property"
)

var (
	_ core.StatusChecker      = (*Authenticator)(nil)
	_ core.LoginAuthenticator = (*Authenticator)(nil)
)

// Authenticator authenticates callers presenting an ID token of the
// provider configured for the webservice.
type Authenticator struct {
	secrets  core.SecretRepository
	certs    CertificateSource
	verifier *TokenVerifier
}

func NewAuthenticator(secrets core.SecretRepository, certs CertificateSource, codec TokenCodec) *Authenticator {
	return &Authenticator{
		secrets:  secrets,
		certs:    certs,
		verifier: NewTokenVerifier(certs, codec),
	}
}

func (a *Authenticator) Name() string {
	return Type
}

// Status checks that the webservice is configured and that its provider
// serves signing certificates.
func (a *Authenticator) Status(ctx context.Context, input core.StatusInput) error {
	providerURI, err := a.requiredSecret(ctx, input.Webservice, VariableProviderURI)
	if err != nil {
		return err
	}
	if _, err := a.requiredSecret(ctx, input.Webservice, VariableIDTokenUserProperty); err != nil {
		return err
	}
	if _, err := a.certs.FetchCertificates(ctx, providerURI); err != nil {
		return err
	}
	return nil
}

// Authenticate verifies the ID token in input.Credentials and returns the
// value of the configured user property claim as login name.
func (a *Authenticator) Authenticate(ctx context.Context, input core.AuthenticationInput) (string, error) {
	if input.Credentials == "" {
		return "", authn.MissingRequestParam("id_token")
	}

	providerURI, err := a.requiredSecret(ctx, input.Webservice, VariableProviderURI)
	if err != nil {
		return "", err
	}
	userProperty, err := a.requiredSecret(ctx, input.Webservice, VariableIDTokenUserProperty)
	if err != nil {
		return "", err
	}

	claims, err := a.verifier.DecodeAndVerify(ctx, providerURI, input.Credentials)
	if err != nil {
		return "", err
	}

	login, ok := claims[userProperty].(string)
	if !ok || login == "" {
		return "", authn.IdTokenFieldNotFoundOrEmpty(userProperty)
	}
	log.Ctx(ctx).Debug().
		Str("webservice", input.Webservice.Name()).
		Str("login", login).
		Msg("resolved login from id token")
	return login, nil
}

func (a *Authenticator) requiredSecret(ctx context.Context, ws core.Webservice, name string) (string, error) {
	id := ws.VariableID(name)
	value, err := a.secrets.Secret(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return "", authn.RequiredResourceMissing(id)
	}
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", authn.RequiredSecretMissing(id)
	}
	return value, nil
}
