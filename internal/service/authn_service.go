package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/session"
)

const defaultAuditLimit = 50

// AuthnService is the main service that handles status checks and logins.
type AuthnService struct {
	authenticators core.AuthenticatorRegistry
	directory      Directory
	whitelist      core.WhitelistSource
	auditor        core.Auditor
	sessions       *session.Manager

	enabledAuthenticators string
	status                *authn.StatusValidator
	now                   func() time.Time
}

func NewAuthnService(
	authenticators core.AuthenticatorRegistry,
	directory Directory,
	auditor core.Auditor,
	sessions *session.Manager,
	enabledAuthenticators string,
) *AuthnService {
	whitelist := core.WhitelistFunc(authn.ParseWebservices)
	return &AuthnService{
		authenticators:        authenticators,
		directory:             directory,
		whitelist:             whitelist,
		auditor:               auditor,
		sessions:              sessions,
		enabledAuthenticators: enabledAuthenticators,
		status: authn.NewStatusValidator(
			authenticators, directory, directory, directory, whitelist, auditor, enabledAuthenticators,
		),
		now: time.Now,
	}
}

// Status reports whether the requested authenticator webservice is usable.
func (s *AuthnService) Status(ctx context.Context, req StatusRequest) error {
	ws := core.Webservice{
		Account:           req.Account,
		AuthenticatorName: req.Authenticator,
		ServiceID:         req.ServiceID,
	}
	return s.status.ValidateStatus(ctx, authn.StatusRequest{
		AuthenticatorName: req.Authenticator,
		Account:           req.Account,
		Webservice:        ws,
		User:              req.Caller,
		CorrelationID:     core.CorrelationID(ctx),
	})
}

// Authenticate verifies the presented credentials with the requested
// authenticator and mints an access token for the resulting role.
func (s *AuthnService) Authenticate(ctx context.Context, req AuthenticateRequest) (*AuthenticateResponse, error) {
	logger := log.Ctx(ctx)
	ws := core.Webservice{
		Account:           req.Account,
		AuthenticatorName: req.Authenticator,
		ServiceID:         req.ServiceID,
	}

	event := core.AuditEvent{
		ID:                uuid.NewString(),
		CorrelationID:     core.CorrelationID(ctx),
		Time:              s.now(),
		Action:            core.ActionAuthenticate,
		ResourceID:        ws.ResourceID(),
		AuthenticatorName: req.Authenticator,
		Account:           req.Account,
		Username:          req.Login,
	}

	resp, err := s.authenticate(ctx, req, ws, &event)
	event.Success = err == nil
	if err != nil {
		event.Message = err.Error()
		logger.Warn().Err(err).Str("webservice", ws.Name()).Msg("authentication failed")
	} else {
		logger.Info().Str("webservice", ws.Name()).Str("role", resp.Role.ID).Msg("authentication succeeded")
	}

	if auditErr := s.auditor.Log(ctx, event); auditErr != nil {
		auditErr = fmt.Errorf("writing audit event: %w", auditErr)
		if err != nil {
			return nil, errors.Join(err, auditErr)
		}
		return nil, auditErr
	}
	return resp, err
}

func (s *AuthnService) authenticate(
	ctx context.Context,
	req AuthenticateRequest,
	ws core.Webservice,
	event *core.AuditEvent,
) (*AuthenticateResponse, error) {
	authenticator, ok := s.authenticators.Lookup(req.Authenticator)
	if !ok {
		return nil, authn.AuthenticatorNotFound(req.Authenticator)
	}
	loginAuthenticator, ok := authenticator.(core.LoginAuthenticator)
	if !ok {
		return nil, authn.LoginNotImplemented(req.Authenticator)
	}

	if _, err := s.directory.Role(ctx, core.AdminRoleID(req.Account)); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, authn.AccountNotDefined(req.Account)
		}
		return nil, err
	}

	enabled := s.whitelist.EnabledAuthenticators(req.Account, s.enabledAuthenticators)
	if !slices.Contains(enabled, ws) {
		return nil, authn.NotWhitelisted(ws.Name())
	}

	// the default authenticator has no webservice resource
	isDefault := req.Authenticator == core.DefaultAuthenticatorName
	var webservice *core.Resource
	if !isDefault {
		resource, err := s.directory.Resource(ctx, ws.ResourceID())
		if errors.Is(err, core.ErrNotFound) {
			return nil, authn.ServiceNotDefined(ws.Name())
		}
		if err != nil {
			return nil, err
		}
		webservice = resource
	}

	login, err := loginAuthenticator.Authenticate(ctx, core.AuthenticationInput{
		Account:           req.Account,
		AuthenticatorName: req.Authenticator,
		Webservice:        ws,
		Login:             req.Login,
		Credentials:       req.Credentials,
	})
	if err != nil {
		return nil, err
	}
	event.Username = login
	log.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("login", login)
	})

	role, err := s.directory.Role(ctx, core.RoleIDFromLogin(req.Account, login))
	if errors.Is(err, core.ErrNotFound) {
		return nil, authn.UserNotDefinedInConjur(login)
	}
	if err != nil {
		return nil, err
	}

	if !isDefault {
		allowed, err := s.directory.Allowed(ctx, role, core.PrivilegeAuthenticate, webservice)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, authn.UserNotAuthorizedInConjur(login)
		}
	}

	token, err := s.sessions.Mint(role)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	return &AuthenticateResponse{Role: role, Token: token}, nil
}

// AuditEvents returns the most recent audit events of an account.
// Only the admin of the account may read them.
func (s *AuthnService) AuditEvents(_ context.Context, q AuditQuery) ([]core.AuditEvent, error) {
	if q.Caller == nil {
		return nil, httpError(http.StatusUnauthorized, errors.New("login required"))
	}
	if q.Caller.ID != core.AdminRoleID(q.Account) {
		return nil, httpError(http.StatusForbidden,
			fmt.Errorf("role '%s' may not read audit events of account '%s'", q.Caller.ID, q.Account))
	}

	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		return nil, httpError(http.StatusNotImplemented, errors.New("configured audit sink cannot be queried"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	events, err := reader.Find(func(e core.AuditEvent) bool {
		if e.Account != q.Account {
			return false
		}
		if q.Action != "" && e.Action != q.Action {
			return false
		}
		return !q.FailedOnly || !e.Success
	}, limit)
	if err != nil {
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("reading audit events: %w", err))
	}
	return events, nil
}
