package oidc

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
)

// TokenVerifier decodes ID tokens presented by clients and verifies their
// signature and expiration.
type TokenVerifier struct {
	certs CertificateSource
	codec TokenCodec
}

func NewTokenVerifier(certs CertificateSource, codec TokenCodec) *TokenVerifier {
	return &TokenVerifier{
		certs: certs,
		codec: codec,
	}
}

// DecodeAndVerify fetches the signing certificates of the provider, decodes
// the token and verifies its claims. On success all claims of the token are returned.
//
// The expected issuer, audience and nonce are taken from the token itself, so
// only signature and expiration are effectively enforced. Binding the token
// to a configured issuer/client is left to the caller.
func (v *TokenVerifier) DecodeAndVerify(ctx context.Context, providerURI, idToken string) (core.IdentityClaims, error) {
	logger := log.Ctx(ctx)

	// errors of the certificate source are already classified
	certs, err := v.certs.FetchCertificates(ctx, providerURI)
	if err != nil {
		return nil, err
	}

	decoded, err := v.codec.Decode(idToken, certs)
	if err != nil {
		return nil, authn.IdTokenInvalidFormat(err)
	}
	logger.Debug().Str("provider_uri", providerURI).Msg("decoded id token")

	attributes := decoded.RawAttributes()
	expected := ExpectedClaims{
		ClientID: audienceOf(attributes),
		Issuer:   stringClaim(attributes, "iss"),
		Nonce:    stringClaim(attributes, "nonce"),
	}
	if err := decoded.Verify(expected); err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, authn.IdTokenExpired()
		}
		return nil, authn.IdTokenVerifyFailed(err)
	}
	logger.Debug().Str("provider_uri", providerURI).Msg("verified id token")

	return attributes, nil
}

// audienceOf returns the audience of the token, falling back to the
// client_id claim. For multi-audience tokens the first audience is used.
func audienceOf(claims core.IdentityClaims) string {
	switch aud := claims["aud"].(type) {
	case string:
		return aud
	case []any:
		if len(aud) > 0 {
			if first, ok := aud[0].(string); ok {
				return first
			}
		}
	}
	return stringClaim(claims, "client_id")
}

func stringClaim(claims core.IdentityClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}
