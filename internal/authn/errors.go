package authn

import (
	"errors"
	"fmt"
)

// Kind classifies authentication failures. Kinds are stable and are what
// callers should branch on, the message is for humans.
type Kind string

const (
	KindAuthenticatorNotFound     Kind = "AuthenticatorNotFound"
	KindStatusNotImplemented      Kind = "StatusNotImplemented"
	KindAccountNotDefined         Kind = "AccountNotDefined"
	KindServiceNotDefined         Kind = "ServiceNotDefined"
	KindUserNotDefinedInConjur    Kind = "UserNotDefinedInConjur"
	KindUserNotAuthorizedInConjur Kind = "UserNotAuthorizedInConjur"
	KindNotWhitelisted            Kind = "NotWhitelisted"

	KindIdTokenInvalidFormat        Kind = "IdTokenInvalidFormat"
	KindIdTokenExpired              Kind = "IdTokenExpired"
	KindIdTokenVerifyFailed         Kind = "IdTokenVerifyFailed"
	KindIdTokenFieldNotFoundOrEmpty Kind = "IdTokenFieldNotFoundOrEmpty"

	KindProviderDiscoveryFailed        Kind = "ProviderDiscoveryFailed"
	KindProviderFetchCertificateFailed Kind = "ProviderFetchCertificateFailed"

	KindRequiredResourceMissing Kind = "RequiredResourceMissing"
	KindRequiredSecretMissing   Kind = "RequiredSecretMissing"
	KindLoginNotImplemented     Kind = "LoginNotImplemented"
	KindInvalidCredentials      Kind = "InvalidCredentials"
	KindMissingRequestParam     Kind = "MissingRequestParam"
)

var messages = map[Kind]string{
	KindAuthenticatorNotFound:     "CONJ00001E Authenticator '%s' is not implemented",
	KindStatusNotImplemented:      "CONJ00056E Status check not implemented for authenticator '%s'",
	KindAccountNotDefined:         "CONJ00008E Account '%s' is not defined",
	KindServiceNotDefined:         "CONJ00005E Webservice '%s' is not defined",
	KindUserNotDefinedInConjur:    "CONJ00007E User '%s' is not defined",
	KindUserNotAuthorizedInConjur: "CONJ00006E User '%s' is not authorized",
	KindNotWhitelisted:            "CONJ00004E Authenticator '%s' is not enabled",

	KindIdTokenInvalidFormat:        "CONJ00012E Invalid ID Token Format (3rdPartyError ='%s')",
	KindIdTokenExpired:              "CONJ00016E ID Token expired%s",
	KindIdTokenVerifyFailed:         "CONJ00015E ID Token verification failed (3rdPartyError ='%s')",
	KindIdTokenFieldNotFoundOrEmpty: "CONJ00013E Field '%s' not found or empty in ID Token",

	KindProviderDiscoveryFailed:        "CONJ00011E Failed to discover Identity Provider (%s)",
	KindProviderFetchCertificateFailed: "CONJ00017E Failed to fetch certificate from Identity Provider (%s)",

	KindRequiredResourceMissing: "CONJ00036E Missing required resource: '%s'",
	KindRequiredSecretMissing:   "CONJ00037E Missing value for resource: '%s'",
	KindLoginNotImplemented:     "CONJ00057E Login not implemented for authenticator '%s'",
	KindInvalidCredentials:      "CONJ00002E Invalid credentials%s",
	KindMissingRequestParam:     "CONJ00009E Field '%s' is missing or empty in request body",
}

// Error is the carrier for every classified authentication failure.
type Error struct {
	Kind Kind
	// Subject is the entity the failure is about (authenticator name, account,
	// user, ...) or the description of an underlying 3rd-party error.
	Subject string
}

func newError(kind Kind, subject string) *Error {
	return &Error{Kind: kind, Subject: subject}
}

func (e *Error) Error() string {
	format, ok := messages[e.Kind]
	if !ok {
		return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
	}
	return fmt.Sprintf(format, e.Subject)
}

// Is matches another *Error of the same kind. A target without subject
// matches any subject, which is how the Err* sentinels below are used.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Subject == "" || t.Subject == e.Subject)
}

// Sentinels for errors.Is.
var (
	ErrAuthenticatorNotFound     = &Error{Kind: KindAuthenticatorNotFound}
	ErrStatusNotImplemented      = &Error{Kind: KindStatusNotImplemented}
	ErrAccountNotDefined         = &Error{Kind: KindAccountNotDefined}
	ErrServiceNotDefined         = &Error{Kind: KindServiceNotDefined}
	ErrUserNotDefinedInConjur    = &Error{Kind: KindUserNotDefinedInConjur}
	ErrUserNotAuthorizedInConjur = &Error{Kind: KindUserNotAuthorizedInConjur}
	ErrNotWhitelisted            = &Error{Kind: KindNotWhitelisted}

	ErrIdTokenInvalidFormat        = &Error{Kind: KindIdTokenInvalidFormat}
	ErrIdTokenExpired              = &Error{Kind: KindIdTokenExpired}
	ErrIdTokenVerifyFailed         = &Error{Kind: KindIdTokenVerifyFailed}
	ErrIdTokenFieldNotFoundOrEmpty = &Error{Kind: KindIdTokenFieldNotFoundOrEmpty}

	ErrProviderDiscoveryFailed        = &Error{Kind: KindProviderDiscoveryFailed}
	ErrProviderFetchCertificateFailed = &Error{Kind: KindProviderFetchCertificateFailed}

	ErrRequiredResourceMissing = &Error{Kind: KindRequiredResourceMissing}
	ErrRequiredSecretMissing   = &Error{Kind: KindRequiredSecretMissing}
	ErrLoginNotImplemented     = &Error{Kind: KindLoginNotImplemented}
	ErrInvalidCredentials      = &Error{Kind: KindInvalidCredentials}
	ErrMissingRequestParam     = &Error{Kind: KindMissingRequestParam}
)

// Constructors used by other packages that classify their own failures.

func AuthenticatorNotFound(name string) error     { return newError(KindAuthenticatorNotFound, name) }
func StatusNotImplemented(name string) error      { return newError(KindStatusNotImplemented, name) }
func AccountNotDefined(account string) error      { return newError(KindAccountNotDefined, account) }
func ServiceNotDefined(name string) error         { return newError(KindServiceNotDefined, name) }
func UserNotDefinedInConjur(user string) error    { return newError(KindUserNotDefinedInConjur, user) }
func UserNotAuthorizedInConjur(user string) error { return newError(KindUserNotAuthorizedInConjur, user) }
func NotWhitelisted(name string) error            { return newError(KindNotWhitelisted, name) }
func LoginNotImplemented(name string) error       { return newError(KindLoginNotImplemented, name) }
func MissingRequestParam(field string) error      { return newError(KindMissingRequestParam, field) }
func RequiredResourceMissing(id string) error     { return newError(KindRequiredResourceMissing, id) }
func RequiredSecretMissing(id string) error       { return newError(KindRequiredSecretMissing, id) }

// IdTokenInvalidFormat deliberately keeps only the description of cause, so
// library error types never leak to callers.
func IdTokenInvalidFormat(cause error) error {
	return newError(KindIdTokenInvalidFormat, cause.Error())
}

func IdTokenExpired() error { return newError(KindIdTokenExpired, "") }

func IdTokenVerifyFailed(cause error) error {
	return newError(KindIdTokenVerifyFailed, cause.Error())
}

func IdTokenFieldNotFoundOrEmpty(field string) error {
	return newError(KindIdTokenFieldNotFoundOrEmpty, field)
}

func ProviderDiscoveryFailed(providerURI string, cause error) error {
	return newError(KindProviderDiscoveryFailed, fmt.Sprintf("%s: %v", providerURI, cause))
}

func ProviderFetchCertificateFailed(providerURI string, cause error) error {
	return newError(KindProviderFetchCertificateFailed, fmt.Sprintf("%s: %v", providerURI, cause))
}

func InvalidCredentials() error { return newError(KindInvalidCredentials, "") }

// KindOf returns the kind of a classified error, or "" if err is not one.
func KindOf(err error) Kind {
	var authnErr *Error
	if errors.As(err, &authnErr) {
		return authnErr.Kind
	}
	return ""
}
