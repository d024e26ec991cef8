package authenticators

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
)

// APIKeyType is the default authenticator: roles log in with their API key.
const APIKeyType = core.DefaultAuthenticatorName

var _ core.LoginAuthenticator = (*APIKeyAuthenticator)(nil)

// APIKeyAuthenticator checks API keys against the bcrypt hashes of the credential repository.
// It has no configuration and therefore no status check.
type APIKeyAuthenticator struct {
	credentials core.CredentialRepository
}

func NewAPIKeyAuthenticator(credentials core.CredentialRepository) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{credentials: credentials}
}

func (a *APIKeyAuthenticator) Name() string {
	return APIKeyType
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, input core.AuthenticationInput) (string, error) {
	if input.Login == "" {
		return "", authn.MissingRequestParam("login")
	}
	if input.Credentials == "" {
		return "", authn.MissingRequestParam("api_key")
	}

	roleID := core.RoleIDFromLogin(input.Account, input.Login)
	hash, err := a.credentials.APIKeyHash(ctx, roleID)
	if errors.Is(err, core.ErrNotFound) {
		log.Ctx(ctx).Debug().Str("role_id", roleID).Msg("no api key stored for role")
		return "", authn.InvalidCredentials()
	}
	if err != nil {
		return "", fmt.Errorf("reading api key of %s: %w", roleID, err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(input.Credentials)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Ctx(ctx).Warn().Err(err).Str("role_id", roleID).Msg("stored api key hash is unusable")
		}
		return "", authn.InvalidCredentials()
	}
	return input.Login, nil
}

// HashAPIKey returns the hash of an API key in the format stored in the config file.
func HashAPIKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", errors.New("api key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing api key: %w", err)
	}
	return string(hash), nil
}
