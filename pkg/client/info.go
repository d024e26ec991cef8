package client

import (
	"context"

	"github.com/darmiel/authnd/internal/api"
)

// Info retrieves build information and the installed authenticators of the server.
func (c *Client) Info(ctx context.Context) (*api.InfoResponse, string, error) {
	var info api.InfoResponse
	correlation, err := c.get(ctx, c.url().setPath(api.InfoRoute).build(), &info)
	return &info, correlation, err
}
