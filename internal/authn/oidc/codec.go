package oidc

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/darmiel/authnd/internal/core"
)

// ErrTokenExpired is wrapped by DecodedToken.Verify when the token is past
// its expiration time.
var ErrTokenExpired = errors.New("token is expired")

// ExpectedClaims are the values a decoded ID token is verified against.
type ExpectedClaims struct {
	ClientID string
	Issuer   string
	Nonce    string
}

// DecodedToken is an ID token whose signature has been checked.
type DecodedToken interface {
	// Verify checks the claims of the token.
	Verify(expected ExpectedClaims) error

	// RawAttributes returns a copy of all claims of the token.
	RawAttributes() core.IdentityClaims
}

// TokenCodec decodes ID tokens using a set of signing certificates.
type TokenCodec interface {
	Decode(token string, certs jwk.Set) (DecodedToken, error)
}

var signingMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

var _ TokenCodec = (*JWTCodec)(nil)

// JWTCodec decodes and verifies compact serialized ID tokens.
type JWTCodec struct {
	now func() time.Time
}

func NewJWTCodec() *JWTCodec {
	return &JWTCodec{now: time.Now}
}

// Decode parses the token and checks its signature. Claims are not validated here.
func (c *JWTCodec) Decode(token string, certs jwk.Set) (DecodedToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods(signingMethods),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, jwt.MapClaims{}, keyFunc(certs))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	return &decodedJWT{claims: claims, now: c.now}, nil
}

// keyFunc selects the verification key by the "kid" header. Tokens without
// a kid are accepted if the set holds exactly one key.
func keyFunc(certs jwk.Set) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if certs == nil || certs.Len() == 0 {
			return nil, errors.New("no signing certificates available")
		}

		var key jwk.Key
		kid, _ := token.Header["kid"].(string)
		switch {
		case kid != "":
			k, ok := certs.LookupKeyID(kid)
			if !ok {
				return nil, fmt.Errorf("no signing certificate with kid '%s'", kid)
			}
			key = k
		case certs.Len() == 1:
			key, _ = certs.Key(0)
		default:
			return nil, fmt.Errorf("token has no kid and %d signing certificates are available", certs.Len())
		}

		raw, err := jwk.PublicRawKeyOf(key)
		if err != nil {
			return nil, fmt.Errorf("reading signing certificate: %w", err)
		}
		return raw, nil
	}
}

type decodedJWT struct {
	claims jwt.MapClaims
	now    func() time.Time
}

func (d *decodedJWT) RawAttributes() core.IdentityClaims {
	return core.IdentityClaims(maps.Clone(d.claims))
}

// Verify checks expiration, then compares issuer, nonce and audience with
// expected. Absent issuer and nonce claims match empty expectations. The
// audience claim must be present and contain expected.ClientID. No other
// claims are required and "nbf" is not evaluated.
func (d *decodedJWT) Verify(expected ExpectedClaims) error {
	// expiration is checked first so an expired token is always reported as such
	exp, err := d.claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if exp == nil || !d.now().Before(exp.Time) {
		return fmt.Errorf("%w: expired at %v", ErrTokenExpired, expTime(exp))
	}

	claims := core.IdentityClaims(d.claims)
	if stringClaim(claims, "iss") != expected.Issuer {
		return errors.New("issuer does not match")
	}
	if stringClaim(claims, "nonce") != expected.Nonce {
		return errors.New("nonce does not match")
	}

	audience, err := d.claims.GetAudience()
	if err != nil {
		return err
	}
	if !slices.Contains(audience, expected.ClientID) {
		return errors.New("audience does not match")
	}
	return nil
}

func expTime(exp *jwt.NumericDate) string {
	if exp == nil {
		return "(missing)"
	}
	return exp.Time.UTC().Format(time.RFC3339)
}
