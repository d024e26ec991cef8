package core

import (
	"context"
	"time"
)

// Audit actions.
const (
	ActionStatus       = "authn.status"
	ActionAuthenticate = "authn.authenticate"
)

// AuditEvent records a single authentication decision.
type AuditEvent struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// CorrelationID is the request ID (X-Correlation-ID) that triggered the event.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "authn.status")
	Action string `json:"action"`

	ResourceID        string `json:"resource_id"`
	AuthenticatorName string `json:"authenticator_name"`
	Account           string `json:"account"`
	Username          string `json:"username,omitempty"`

	Success bool `json:"success"`
	// Message is the error message of a failed attempt, empty on success.
	Message string `json:"message,omitempty"`
}

type Auditor interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}

// AuditReader is implemented by auditors that can be queried.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEvent, error)
	Find(filter func(event AuditEvent) bool, limit int) ([]AuditEvent, error)
}
