package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/authnd/internal/core"
)

type testIssuer struct {
	key  *rsa.PrivateKey
	kid  string
	jwks jwk.Set
}

func newTestIssuer(t *testing.T, kid string) *testIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, kid))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return &testIssuer{key: key, kid: kid, jwks: set}
}

func (i *testIssuer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if i.kid != "" {
		token.Header["kid"] = i.kid
	}
	signed, err := token.SignedString(i.key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":                "https://idp.example.com",
		"sub":                "248289761001",
		"aud":                "conjur-client",
		"nonce":              "n-0S6_WzA2Mj",
		"iat":                now.Unix(),
		"exp":                now.Add(time.Hour).Unix(),
		"preferred_username": "alice",
		"groups":             []string{"dev", "ops"},
	}
}

// asDecoded returns claims the way they come out of a decoded token.
func asDecoded(t *testing.T, claims jwt.MapClaims) core.IdentityClaims {
	t.Helper()

	raw, err := json.Marshal(claims)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

type staticCertificates struct {
	set   jwk.Set
	err   error
	calls []string
}

func (s *staticCertificates) FetchCertificates(_ context.Context, providerURI string) (jwk.Set, error) {
	s.calls = append(s.calls, providerURI)
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

type countingCodec struct {
	TokenCodec
	calls int
}

func (c *countingCodec) Decode(token string, certs jwk.Set) (DecodedToken, error) {
	c.calls++
	return c.TokenCodec.Decode(token, certs)
}
