package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/darmiel/authnd/internal/core"
)

// Token is a signed access token handed out after a successful login.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager mints and parses HS256 access tokens.
// The subject of a token is the role id of the authenticated caller.
type Manager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewManager(signingKey []byte, issuer string, ttl time.Duration) *Manager {
	return &Manager{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Mint signs a new access token for role.
func (m *Manager) Mint(role *core.Role) (*Token, error) {
	if role == nil || role.ID == "" {
		return nil, errors.New("cannot mint token without role")
	}

	now := m.now()
	exp := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"iss":     m.issuer,
		"sub":     role.ID,
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
		"account": role.Account(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &Token{
		Value:     signed,
		ExpiresAt: time.Unix(exp.Unix(), 0),
	}, nil
}

// Parse verifies an access token and returns the role it was issued for.
func (m *Manager) Parse(tokenStr string) (*core.Role, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid access token: missing subject")
	}
	return &core.Role{ID: sub}, nil
}
