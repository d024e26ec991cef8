package api

import (
	"net/http"

	"github.com/darmiel/authnd/internal/authn"
)

// statusCodeForStatus maps the outcome of a status check to an HTTP status code.
func statusCodeForStatus(err error) int {
	switch authn.KindOf(err) {
	case authn.KindAuthenticatorNotFound:
		return http.StatusNotFound
	case authn.KindStatusNotImplemented:
		return http.StatusNotImplemented
	case authn.KindUserNotAuthorizedInConjur:
		return http.StatusForbidden
	case authn.KindUserNotDefinedInConjur:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// statusCodeForLogin maps a failed login to an HTTP status code.
// Credential and identity failures are not distinguished towards the client.
func statusCodeForLogin(err error) int {
	switch authn.KindOf(err) {
	case authn.KindAuthenticatorNotFound:
		return http.StatusNotFound
	case authn.KindLoginNotImplemented:
		return http.StatusNotImplemented
	case authn.KindMissingRequestParam:
		return http.StatusBadRequest
	case authn.KindProviderDiscoveryFailed, authn.KindProviderFetchCertificateFailed:
		return http.StatusBadGateway
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
