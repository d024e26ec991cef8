package authn

import (
	"slices"
	"strings"

	"github.com/darmiel/authnd/internal/core"
)

var _ core.WhitelistSource = core.WhitelistFunc(ParseWebservices)

// ParseWebservices parses a comma separated list of enabled authenticators
// (e.g. "authn,authn-oidc/okta") into the webservices of the given account.
// An empty list enables only the default authenticator.
func ParseWebservices(account, list string) []core.Webservice {
	if strings.TrimSpace(list) == "" {
		list = core.DefaultAuthenticatorName
	}

	var webservices []core.Webservice
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ws := core.NewWebservice(account, entry)
		if !slices.Contains(webservices, ws) {
			webservices = append(webservices, ws)
		}
	}
	return webservices
}
