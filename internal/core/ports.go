package core

import "context"

// Authenticator is a pluggable strategy that authenticates callers with a
// specific protocol. Capabilities are expressed by the optional interfaces below.
type Authenticator interface {
	// Name returns the authenticator type (e.g. "authn-oidc").
	Name() string
}

// StatusInput is passed to an authenticator's status probe.
type StatusInput struct {
	Account           string
	AuthenticatorName string
	Webservice        Webservice
}

// StatusChecker is implemented by authenticators that can report whether
// they are correctly configured.
type StatusChecker interface {
	Authenticator

	Status(ctx context.Context, input StatusInput) error
}

// AuthenticationInput holds the credentials of a login attempt.
type AuthenticationInput struct {
	Account           string
	AuthenticatorName string
	Webservice        Webservice

	// Login is the claimed identity. Authenticators that derive the identity
	// from the credentials (e.g. OIDC) ignore it.
	Login string

	// Credentials is the raw secret presented by the client (API key, ID token, ...).
	Credentials string
}

// LoginAuthenticator is implemented by authenticators that can authenticate callers.
type LoginAuthenticator interface {
	Authenticator

	// Authenticate verifies the credentials and returns the login name of the caller.
	Authenticate(ctx context.Context, input AuthenticationInput) (string, error)
}

// AuthenticatorRegistry resolves installed authenticator implementations.
type AuthenticatorRegistry interface {
	Lookup(name string) (Authenticator, bool)
}

// RoleRepository resolves roles. Missing roles are reported as ErrNotFound.
type RoleRepository interface {
	Role(ctx context.Context, id string) (*Role, error)
}

// ResourceRepository resolves resources. Missing resources are reported as ErrNotFound.
type ResourceRepository interface {
	Resource(ctx context.Context, id string) (*Resource, error)
}

// Authorizer decides whether a role holds a privilege on a resource.
type Authorizer interface {
	Allowed(ctx context.Context, role *Role, privilege string, resource *Resource) (bool, error)
}

// SecretRepository reads the current value of a variable.
// Undefined variables are reported as ErrNotFound, defined but unset ones
// return an empty string.
type SecretRepository interface {
	Secret(ctx context.Context, id string) (string, error)
}

// CredentialRepository reads the API key hash of a role.
type CredentialRepository interface {
	APIKeyHash(ctx context.Context, roleID string) ([]byte, error)
}

// WhitelistSource returns the webservices enabled for an account.
type WhitelistSource interface {
	EnabledAuthenticators(account, configured string) []Webservice
}

// WhitelistFunc adapts a function to a WhitelistSource.
type WhitelistFunc func(account, configured string) []Webservice

func (f WhitelistFunc) EnabledAuthenticators(account, configured string) []Webservice {
	return f(account, configured)
}

// IdentityClaims are the claims of a verified ID token.
type IdentityClaims map[string]any
