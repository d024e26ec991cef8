package authn

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/core"
)

// StatusRequest asks whether an authenticator webservice is correctly configured.
type StatusRequest struct {
	// AuthenticatorName is the authenticator type, e.g. "authn-oidc".
	AuthenticatorName string

	Account string

	// Webservice is the authenticator instance to check.
	Webservice core.Webservice

	// User is the calling identity, nil if the caller is anonymous.
	User *core.Role

	// CorrelationID is copied into the audit event.
	CorrelationID string
}

// StatusValidator checks that a caller may see the status of an authenticator
// and then runs the authenticator's own status probe.
type StatusValidator struct {
	authenticators core.AuthenticatorRegistry
	roles          core.RoleRepository
	resources      core.ResourceRepository
	authorizer     core.Authorizer
	whitelist      core.WhitelistSource
	auditor        core.Auditor

	// enabledAuthenticators is the configured list of enabled authenticators,
	// see ParseWebservices.
	enabledAuthenticators string

	now func() time.Time
}

func NewStatusValidator(
	authenticators core.AuthenticatorRegistry,
	roles core.RoleRepository,
	resources core.ResourceRepository,
	authorizer core.Authorizer,
	whitelist core.WhitelistSource,
	auditor core.Auditor,
	enabledAuthenticators string,
) *StatusValidator {
	if whitelist == nil {
		whitelist = core.WhitelistFunc(ParseWebservices)
	}
	return &StatusValidator{
		authenticators:        authenticators,
		roles:                 roles,
		resources:             resources,
		authorizer:            authorizer,
		whitelist:             whitelist,
		auditor:               auditor,
		enabledAuthenticators: enabledAuthenticators,
		now:                   time.Now,
	}
}

// ValidateStatus runs the status checks in order and stops at the first
// failure. Every call emits exactly one audit event. A nil error means the
// authenticator is healthy.
//
// Precondition failures are returned as *Error, errors of the authenticator's
// status probe and of the collaborators are returned unchanged.
func (v *StatusValidator) ValidateStatus(ctx context.Context, req StatusRequest) error {
	check := &statusCheck{validator: v, req: req}
	return check.finish(ctx, check.run(ctx))
}

// statusCheck holds the values resolved during a single ValidateStatus call.
type statusCheck struct {
	validator *StatusValidator
	req       StatusRequest

	authenticator  core.Authenticator
	statusResource *core.Resource
}

func (c *statusCheck) run(ctx context.Context) error {
	// each step assumes that the ones before it succeeded
	steps := []func(context.Context) error{
		c.validateAuthenticatorExists,
		c.validateAuthenticatorImplementsStatus,
		c.validateAccountExists,
		c.validateUserHasAccessToStatusRoute,
		c.validateAuthenticatorWebserviceExists,
		c.validateWebserviceIsWhitelisted,
		c.validateAuthenticatorRequirements,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *statusCheck) validateAuthenticatorExists(_ context.Context) error {
	authenticator, ok := c.validator.authenticators.Lookup(c.req.AuthenticatorName)
	if !ok {
		return AuthenticatorNotFound(c.req.AuthenticatorName)
	}
	c.authenticator = authenticator
	return nil
}

func (c *statusCheck) validateAuthenticatorImplementsStatus(_ context.Context) error {
	if _, ok := c.authenticator.(core.StatusChecker); !ok {
		return StatusNotImplemented(c.req.AuthenticatorName)
	}
	return nil
}

func (c *statusCheck) validateAccountExists(ctx context.Context) error {
	_, err := c.validator.roles.Role(ctx, core.AdminRoleID(c.req.Account))
	if errors.Is(err, core.ErrNotFound) {
		return AccountNotDefined(c.req.Account)
	}
	return err
}

func (c *statusCheck) validateUserHasAccessToStatusRoute(ctx context.Context) error {
	resource, err := c.webserviceResource(ctx, c.req.Webservice.StatusWebservice())
	if err != nil {
		return err
	}
	c.statusResource = resource

	if c.req.User == nil {
		return UserNotDefinedInConjur(c.username())
	}

	allowed, err := c.validator.authorizer.Allowed(ctx, c.req.User, core.PrivilegeRead, c.statusResource)
	if err != nil {
		return err
	}
	if !allowed {
		return UserNotAuthorizedInConjur(c.username())
	}
	return nil
}

func (c *statusCheck) validateAuthenticatorWebserviceExists(ctx context.Context) error {
	_, err := c.webserviceResource(ctx, c.req.Webservice)
	return err
}

func (c *statusCheck) validateWebserviceIsWhitelisted(_ context.Context) error {
	enabled := c.validator.whitelist.EnabledAuthenticators(c.req.Account, c.validator.enabledAuthenticators)
	if !slices.Contains(enabled, c.req.Webservice) {
		return NotWhitelisted(c.req.Webservice.Name())
	}
	return nil
}

func (c *statusCheck) validateAuthenticatorRequirements(ctx context.Context) error {
	checker := c.authenticator.(core.StatusChecker) // guaranteed by validateAuthenticatorImplementsStatus
	return checker.Status(ctx, core.StatusInput{
		Account:           c.req.Account,
		AuthenticatorName: c.req.AuthenticatorName,
		Webservice:        c.req.Webservice,
	})
}

func (c *statusCheck) webserviceResource(ctx context.Context, ws core.Webservice) (*core.Resource, error) {
	resource, err := c.validator.resources.Resource(ctx, ws.ResourceID())
	if errors.Is(err, core.ErrNotFound) {
		return nil, ServiceNotDefined(ws.Name())
	}
	if err != nil {
		return nil, err
	}
	return resource, nil
}

func (c *statusCheck) username() string {
	if c.req.User == nil {
		return ""
	}
	return c.req.User.Username()
}

// finish writes the audit event for the outcome of run. The outcome is
// returned unchanged; if the audit sink fails as well, both errors are returned.
func (c *statusCheck) finish(ctx context.Context, err error) error {
	logger := log.Ctx(ctx)

	event := core.AuditEvent{
		ID:                uuid.NewString(),
		CorrelationID:     c.req.CorrelationID,
		Time:              c.validator.now(),
		Action:            core.ActionStatus,
		ResourceID:        c.req.Webservice.ResourceID(),
		AuthenticatorName: c.req.AuthenticatorName,
		Account:           c.req.Account,
		Username:          c.username(),
		Success:           err == nil,
	}
	if err != nil {
		event.Message = err.Error()
		logger.Warn().Err(err).
			Str("webservice", c.req.Webservice.Name()).
			Str("account", c.req.Account).
			Msg("authenticator status check failed")
	} else {
		logger.Debug().
			Str("webservice", c.req.Webservice.Name()).
			Str("account", c.req.Account).
			Msg("authenticator status check passed")
	}

	auditErr := c.validator.auditor.Log(ctx, event)
	if auditErr != nil {
		auditErr = fmt.Errorf("writing audit event: %w", auditErr)
	}

	switch {
	case err == nil:
		return auditErr
	case auditErr != nil:
		return errors.Join(err, auditErr)
	default:
		return err
	}
}
