package authenticators

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/authn"
	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
)

const StubType = "stub"

type stubOptions struct {
	// StatusError makes the status check fail with the given message.
	StatusError string `mapstructure:"status_error"`

	// Logins maps accepted credentials to the login they authenticate.
	Logins map[string]string `mapstructure:"logins"`
}

var (
	_ core.StatusChecker      = (*StubAuthenticator)(nil)
	_ core.LoginAuthenticator = (*StubAuthenticator)(nil)
)

// StubAuthenticator is a fixed authenticator for smoke tests of a deployment.
type StubAuthenticator struct {
	name        string
	statusError string
	logins      map[string]string
}

func NewStub(cfg config.AuthenticatorConfig) (*StubAuthenticator, error) {
	var opts stubOptions
	if err := decodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return &StubAuthenticator{
		name:        cfg.Key(),
		statusError: opts.StatusError,
		logins:      opts.Logins,
	}, nil
}

func (s *StubAuthenticator) Name() string {
	return s.name
}

func (s *StubAuthenticator) Status(ctx context.Context, input core.StatusInput) error {
	log.Ctx(ctx).Info().
		Str("authenticator", s.name).
		Str("webservice", input.Webservice.Name()).
		Msg("StubAuthenticator Status called")
	if s.statusError != "" {
		return errors.New(s.statusError)
	}
	return nil
}

func (s *StubAuthenticator) Authenticate(_ context.Context, input core.AuthenticationInput) (string, error) {
	login, ok := s.logins[input.Credentials]
	if !ok || input.Credentials == "" {
		return "", authn.InvalidCredentials()
	}
	return login, nil
}
