package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/darmiel/authnd/internal/api"
)

// AuthenticateAPIKey exchanges the API key of login for an access token.
// Hosts log in as "host/<id>".
func (c *Client) AuthenticateAPIKey(ctx context.Context, account, login, apiKey string) (*api.AuthenticateResponse, string, error) {
	target := c.url().setPath(api.APIKeyAuthenticateRoute, "account", account, "login", login).build()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(apiKey))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	var resp api.AuthenticateResponse
	correlation, err := c.do(req, &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp, correlation, nil
}

// Authenticate exchanges credentials (e.g. an OIDC id_token) with a webservice
// authenticator for an access token.
func (c *Client) Authenticate(
	ctx context.Context,
	authenticator, serviceID, account, credentials string,
) (*api.AuthenticateResponse, string, error) {
	target := c.url().setPath(api.AuthenticateRoute,
		"authenticator", authenticator, "service", serviceID, "account", account).build()
	form := url.Values{"id_token": {credentials}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp api.AuthenticateResponse
	correlation, err := c.do(req, &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp, correlation, nil
}
