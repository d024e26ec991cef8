package authn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/authnd/internal/core"
)

type fakeAuthenticator struct {
	name string
}

func (f *fakeAuthenticator) Name() string { return f.name }

type fakeStatusAuthenticator struct {
	fakeAuthenticator
	err   error
	calls []core.StatusInput
}

func (f *fakeStatusAuthenticator) Status(_ context.Context, input core.StatusInput) error {
	f.calls = append(f.calls, input)
	return f.err
}

type fakeRegistry map[string]core.Authenticator

func (r fakeRegistry) Lookup(name string) (core.Authenticator, bool) {
	a, ok := r[name]
	return a, ok
}

type fakeDirectory struct {
	roles     map[string]bool
	resources map[string]bool
	// permits maps "role|privilege|resource" to true
	permits map[string]bool

	roleCalls, resourceCalls, allowedCalls int
}

func (d *fakeDirectory) Role(_ context.Context, id string) (*core.Role, error) {
	d.roleCalls++
	if !d.roles[id] {
		return nil, core.ErrNotFound
	}
	return &core.Role{ID: id}, nil
}

func (d *fakeDirectory) Resource(_ context.Context, id string) (*core.Resource, error) {
	d.resourceCalls++
	if !d.resources[id] {
		return nil, core.ErrNotFound
	}
	return &core.Resource{ID: id}, nil
}

func (d *fakeDirectory) Allowed(_ context.Context, role *core.Role, privilege string, resource *core.Resource) (bool, error) {
	d.allowedCalls++
	return d.permits[role.ID+"|"+privilege+"|"+resource.ID], nil
}

type countingWhitelist struct {
	calls int
}

func (w *countingWhitelist) EnabledAuthenticators(account, configured string) []core.Webservice {
	w.calls++
	return ParseWebservices(account, configured)
}

type recordingAuditor struct {
	events []core.AuditEvent
	err    error
}

func (r *recordingAuditor) Log(_ context.Context, event core.AuditEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingAuditor) Close() error { return nil }

type statusFixture struct {
	oidc      *fakeStatusAuthenticator
	registry  fakeRegistry
	directory *fakeDirectory
	whitelist *countingWhitelist
	auditor   *recordingAuditor
	enabled   string
}

func newStatusFixture() *statusFixture {
	oidc := &fakeStatusAuthenticator{fakeAuthenticator: fakeAuthenticator{name: "authn-oidc"}}
	return &statusFixture{
		oidc: oidc,
		registry: fakeRegistry{
			"authn-oidc":          oidc,
			"authn-oidc/service1": oidc,
			"authn":               &fakeAuthenticator{name: "authn"},
		},
		directory: &fakeDirectory{
			roles: map[string]bool{
				"cucumber:user:admin": true,
				"cucumber:user:alice": true,
			},
			resources: map[string]bool{
				"cucumber:webservice:conjur/authn-oidc/service1":        true,
				"cucumber:webservice:conjur/authn-oidc/service1/status": true,
			},
			permits: map[string]bool{
				"cucumber:user:alice|read|cucumber:webservice:conjur/authn-oidc/service1/status": true,
			},
		},
		whitelist: &countingWhitelist{},
		auditor:   &recordingAuditor{},
		enabled:   "authn,authn-oidc/service1",
	}
}

func (f *statusFixture) validator() *StatusValidator {
	return NewStatusValidator(f.registry, f.directory, f.directory, f.directory, f.whitelist, f.auditor, f.enabled)
}

func aliceRequest(name string) StatusRequest {
	return StatusRequest{
		AuthenticatorName: name,
		Account:           "cucumber",
		Webservice:        core.NewWebservice("cucumber", "authn-oidc/service1"),
		User:              &core.Role{ID: "cucumber:user:alice"},
	}
}

func TestValidateStatus_Success(t *testing.T) {
	f := newStatusFixture()

	err := f.validator().ValidateStatus(context.Background(), aliceRequest("authn-oidc/service1"))
	require.NoError(t, err)

	require.Len(t, f.auditor.events, 1)
	event := f.auditor.events[0]
	assert.True(t, event.Success)
	assert.Empty(t, event.Message)
	assert.Equal(t, "alice", event.Username)
	assert.Equal(t, "cucumber", event.Account)
	assert.Equal(t, "authn-oidc/service1", event.AuthenticatorName)
	assert.Equal(t, "cucumber:webservice:conjur/authn-oidc/service1", event.ResourceID)
	assert.Equal(t, core.ActionStatus, event.Action)
	assert.NotEmpty(t, event.ID)

	require.Len(t, f.oidc.calls, 1)
	assert.Equal(t, core.StatusInput{
		Account:           "cucumber",
		AuthenticatorName: "authn-oidc/service1",
		Webservice:        core.NewWebservice("cucumber", "authn-oidc/service1"),
	}, f.oidc.calls[0])
}

func TestValidateStatus_UnknownAuthenticatorShortCircuits(t *testing.T) {
	for _, name := range []string{"authn-unknown", "", "authn-oidc/other", "AUTHN-OIDC"} {
		t.Run(name, func(t *testing.T) {
			f := newStatusFixture()

			err := f.validator().ValidateStatus(context.Background(), aliceRequest(name))
			require.ErrorIs(t, err, ErrAuthenticatorNotFound)

			assert.Zero(t, f.directory.roleCalls)
			assert.Zero(t, f.directory.resourceCalls)
			assert.Zero(t, f.directory.allowedCalls)
			assert.Zero(t, f.whitelist.calls)
			assert.Empty(t, f.oidc.calls)
			require.Len(t, f.auditor.events, 1)
			assert.False(t, f.auditor.events[0].Success)
		})
	}
}

func TestValidateStatus_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *statusFixture, req *StatusRequest)
		wantErr error
	}{
		{
			name: "Status Not Implemented",
			mutate: func(f *statusFixture, req *StatusRequest) {
				req.AuthenticatorName = "authn"
			},
			wantErr: ErrStatusNotImplemented,
		},
		{
			name: "Account Not Defined",
			mutate: func(f *statusFixture, req *StatusRequest) {
				delete(f.directory.roles, "cucumber:user:admin")
			},
			wantErr: ErrAccountNotDefined,
		},
		{
			name: "Status Webservice Not Defined",
			mutate: func(f *statusFixture, req *StatusRequest) {
				delete(f.directory.resources, "cucumber:webservice:conjur/authn-oidc/service1/status")
			},
			wantErr: ErrServiceNotDefined,
		},
		{
			name: "Anonymous User",
			mutate: func(f *statusFixture, req *StatusRequest) {
				req.User = nil
			},
			wantErr: ErrUserNotDefinedInConjur,
		},
		{
			name: "User Without Read Permission",
			mutate: func(f *statusFixture, req *StatusRequest) {
				req.User = &core.Role{ID: "cucumber:user:bob"}
			},
			wantErr: ErrUserNotAuthorizedInConjur,
		},
		{
			name: "User Without Read Permission And Not Whitelisted",
			mutate: func(f *statusFixture, req *StatusRequest) {
				req.User = &core.Role{ID: "cucumber:user:bob"}
				f.enabled = "authn"
			},
			wantErr: ErrUserNotAuthorizedInConjur,
		},
		{
			name: "Authenticator Webservice Not Defined",
			mutate: func(f *statusFixture, req *StatusRequest) {
				delete(f.directory.resources, "cucumber:webservice:conjur/authn-oidc/service1")
			},
			wantErr: ErrServiceNotDefined,
		},
		{
			name: "Not Whitelisted",
			mutate: func(f *statusFixture, req *StatusRequest) {
				f.enabled = "authn,authn-oidc/service2"
			},
			wantErr: ErrNotWhitelisted,
		},
		{
			name: "Default Whitelist Excludes OIDC",
			mutate: func(f *statusFixture, req *StatusRequest) {
				f.enabled = ""
			},
			wantErr: ErrNotWhitelisted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStatusFixture()
			req := aliceRequest("authn-oidc")
			tt.mutate(f, &req)

			err := f.validator().ValidateStatus(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.oidc.calls, "status probe must not run when a precondition fails")

			require.Len(t, f.auditor.events, 1)
			event := f.auditor.events[0]
			assert.False(t, event.Success)
			assert.Equal(t, err.Error(), event.Message)
			assert.NotEmpty(t, event.Message)
		})
	}
}

func TestValidateStatus_NotWhitelistedScenario(t *testing.T) {
	f := newStatusFixture()
	f.enabled = "authn"

	err := f.validator().ValidateStatus(context.Background(), aliceRequest("authn-oidc/service1"))
	require.ErrorIs(t, err, ErrNotWhitelisted)
	assert.Contains(t, err.Error(), "authn-oidc/service1")

	require.Len(t, f.auditor.events, 1)
	assert.False(t, f.auditor.events[0].Success)
	assert.Equal(t, "alice", f.auditor.events[0].Username)
	assert.Equal(t, err.Error(), f.auditor.events[0].Message)
}

func TestValidateStatus_ProbeErrorPropagatesUnchanged(t *testing.T) {
	f := newStatusFixture()
	probeErr := RequiredSecretMissing("cucumber:variable:conjur/authn-oidc/service1/provider-uri")
	f.oidc.err = probeErr

	err := f.validator().ValidateStatus(context.Background(), aliceRequest("authn-oidc"))
	require.Error(t, err)
	assert.Same(t, probeErr, err)

	require.Len(t, f.auditor.events, 1)
	assert.False(t, f.auditor.events[0].Success)
	assert.Equal(t, probeErr.Error(), f.auditor.events[0].Message)
}

func TestValidateStatus_CollaboratorErrorPropagates(t *testing.T) {
	f := newStatusFixture()
	storeErr := errors.New("connection reset")
	validator := NewStatusValidator(f.registry, failingRoles{err: storeErr}, f.directory, f.directory, nil, f.auditor, f.enabled)

	err := validator.ValidateStatus(context.Background(), aliceRequest("authn-oidc"))
	assert.Same(t, storeErr, err)
	require.Len(t, f.auditor.events, 1)
}

type failingRoles struct {
	err error
}

func (f failingRoles) Role(context.Context, string) (*core.Role, error) {
	return nil, f.err
}

func TestValidateStatus_AuditFailure(t *testing.T) {
	auditErr := errors.New("audit sink unavailable")

	t.Run("On Success", func(t *testing.T) {
		f := newStatusFixture()
		f.auditor.err = auditErr

		err := f.validator().ValidateStatus(context.Background(), aliceRequest("authn-oidc"))
		require.ErrorIs(t, err, auditErr)
		assert.Len(t, f.auditor.events, 1)
	})

	t.Run("On Failure", func(t *testing.T) {
		f := newStatusFixture()
		f.auditor.err = auditErr
		f.enabled = "authn"

		err := f.validator().ValidateStatus(context.Background(), aliceRequest("authn-oidc"))
		require.ErrorIs(t, err, ErrNotWhitelisted)
		require.ErrorIs(t, err, auditErr)
		assert.True(t, strings.Contains(err.Error(), "not enabled"))
		assert.Len(t, f.auditor.events, 1)
	})
}

func TestError_Is(t *testing.T) {
	err := NotWhitelisted("authn-oidc/service1")
	assert.ErrorIs(t, err, ErrNotWhitelisted)
	assert.ErrorIs(t, err, &Error{Kind: KindNotWhitelisted, Subject: "authn-oidc/service1"})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotWhitelisted, Subject: "authn"})
	assert.NotErrorIs(t, err, ErrServiceNotDefined)
	assert.Equal(t, KindNotWhitelisted, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestIdTokenInvalidFormat_HidesCause(t *testing.T) {
	cause := errors.New("token is malformed")
	err := IdTokenInvalidFormat(cause)
	assert.ErrorIs(t, err, ErrIdTokenInvalidFormat)
	assert.NotErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "token is malformed")
}
