package client

import (
	"context"

	"github.com/darmiel/authnd/internal/api"
	"github.com/darmiel/authnd/internal/api/presenter"
)

// Status runs the status check of an authenticator webservice. serviceID may be empty.
// A failed check is returned as APIError carrying the HTTP status of the response.
func (c *Client) Status(ctx context.Context, authenticator, serviceID, account string) (*presenter.StatusResponse, string, error) {
	ub := c.url().setPath(api.StatusRoute, "authenticator", authenticator, "account", account)
	if serviceID != "" {
		ub = c.url().setPath(api.ServiceStatusRoute,
			"authenticator", authenticator, "service", serviceID, "account", account)
	}
	var resp presenter.StatusResponse
	correlation, err := c.get(ctx, ub.build(), &resp)
	return &resp, correlation, err
}
