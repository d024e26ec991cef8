package core

import "strings"

// DefaultAuthenticatorName is the authenticator every account has enabled
// when no explicit list is configured.
const DefaultAuthenticatorName = "authn"

// Webservice identifies a single authenticator instance of an account,
// e.g. "authn-oidc/okta" in account "cucumber".
type Webservice struct {
	// Account the webservice belongs to.
	Account string `json:"account"`

	// AuthenticatorName is the authenticator type (e.g. "authn-oidc").
	AuthenticatorName string `json:"authenticator_name"`

	// ServiceID is the optional instance identifier (e.g. "okta").
	ServiceID string `json:"service_id,omitempty"`
}

// NewWebservice builds a Webservice from an account and a name of the form
// "authenticator[/service-id]".
func NewWebservice(account, name string) Webservice {
	authenticator, serviceID, _ := strings.Cut(name, "/")
	return Webservice{
		Account:           account,
		AuthenticatorName: authenticator,
		ServiceID:         serviceID,
	}
}

// Name returns "authenticator" or "authenticator/service-id".
func (w Webservice) Name() string {
	if w.ServiceID == "" {
		return w.AuthenticatorName
	}
	return w.AuthenticatorName + "/" + w.ServiceID
}

// ResourceID returns the fully qualified resource id of the webservice.
func (w Webservice) ResourceID() string {
	return ResourceID(w.Account, "webservice", "conjur/"+w.Name())
}

// StatusWebservice returns the sub-webservice guarding the status route.
func (w Webservice) StatusWebservice() Webservice {
	status := w
	if status.ServiceID == "" {
		status.ServiceID = "status"
	} else {
		status.ServiceID += "/status"
	}
	return status
}

// VariableID returns the resource id of a configuration variable that lives
// under this webservice's policy branch, e.g. "conjur/authn-oidc/okta/provider-uri".
func (w Webservice) VariableID(name string) string {
	return ResourceID(w.Account, "variable", "conjur/"+w.Name()+"/"+name)
}

func (w Webservice) String() string {
	return w.Account + ":" + w.Name()
}
