package service

import (
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/session"
)

// Directory resolves roles and resources and answers permission checks.
type Directory interface {
	core.RoleRepository
	core.ResourceRepository
	core.Authorizer
}

type StatusRequest struct {
	// Authenticator is the authenticator path segment, e.g. "authn-oidc".
	Authenticator string

	// ServiceID is the optional instance of the authenticator, e.g. "okta".
	ServiceID string

	Account string

	// Caller is the role of the access token presented with the request, nil if anonymous.
	Caller *core.Role
}

type AuthenticateRequest struct {
	Authenticator string
	ServiceID     string
	Account       string

	// Login is the claimed identity, only used by authenticators that need it (authn).
	Login string

	// Credentials is the API key or ID token presented by the client.
	Credentials string
}

type AuthenticateResponse struct {
	// Role is the authenticated role.
	Role *core.Role

	// Token is the access token minted for Role.
	Token *session.Token
}

type AuditQuery struct {
	// Caller must be the admin of Account.
	Caller  *core.Role
	Account string

	// Action filters by audit action, empty matches all.
	Action string

	// FailedOnly restricts the result to unsuccessful attempts.
	FailedOnly bool

	Limit int
}
