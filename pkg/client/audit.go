package client

import (
	"context"

	"github.com/darmiel/authnd/internal/api"
	"github.com/darmiel/authnd/internal/core"
)

type ListAuditEventsOpts struct {
	Account    string
	Action     string
	FailedOnly bool
	Limit      uint
}

// ListAuditEvents retrieves the latest audit events of an account. Requires an admin access token.
func (c *Client) ListAuditEvents(ctx context.Context, opts ListAuditEventsOpts) ([]core.AuditEvent, string, error) {
	ub := c.url().setPath(api.AuditEventsRoute).addQueryParam("account", opts.Account)
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	if opts.FailedOnly {
		ub = ub.addQueryParam("failed", true)
	}
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	var resp []core.AuditEvent
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
