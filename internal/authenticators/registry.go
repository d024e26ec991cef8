package authenticators

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/authnd/internal/authn/oidc"
	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
)

// Dependencies are the collaborators shared by installed authenticators.
type Dependencies struct {
	Secrets     core.SecretRepository
	Credentials core.CredentialRepository

	// HTTPClient is used to talk to identity providers. Optional.
	HTTPClient *http.Client
}

var _ core.AuthenticatorRegistry = (*Registry)(nil)

// Registry holds the installed authenticators by name.
type Registry struct {
	byName map[string]core.Authenticator
}

// Lookup resolves an authenticator by name. A service suffix
// ("authn-oidc/okta") is ignored.
func (r *Registry) Lookup(name string) (core.Authenticator, bool) {
	name, _, _ = strings.Cut(name, "/")
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the sorted names of all installed authenticators.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BuildRegistry creates the installed authenticators. The API key authenticator
// is always available under core.DefaultAuthenticatorName, even if not configured.
func BuildRegistry(cfgs []config.AuthenticatorConfig, deps Dependencies) (*Registry, error) {
	registry := &Registry{byName: make(map[string]core.Authenticator)}
	for _, cfg := range cfgs {
		name := cfg.Key()
		switch cfg.Type {
		case APIKeyType:
			registry.byName[name] = NewAPIKeyAuthenticator(deps.Credentials)
		case oidc.Type:
			a, err := newOIDC(cfg, deps)
			if err != nil {
				return nil, fmt.Errorf("building authn-oidc authenticator %q: %w", name, err)
			}
			registry.byName[name] = a
		case StubType:
			a, err := NewStub(cfg)
			if err != nil {
				return nil, fmt.Errorf("building stub authenticator %q: %w", name, err)
			}
			registry.byName[name] = a
		default:
			return nil, fmt.Errorf("unknown authenticator type %q for authenticator %q", cfg.Type, name)
		}
	}
	if _, ok := registry.byName[core.DefaultAuthenticatorName]; !ok {
		registry.byName[core.DefaultAuthenticatorName] = NewAPIKeyAuthenticator(deps.Credentials)
	}
	return registry, nil
}

type oidcOptions struct {
	// HTTPTimeout bounds discovery and certificate requests, e.g. "5s".
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

func newOIDC(cfg config.AuthenticatorConfig, deps Dependencies) (*oidc.Authenticator, error) {
	var opts oidcOptions
	if err := decodeOptions(cfg, &opts); err != nil {
		return nil, err
	}

	client := deps.HTTPClient
	if opts.HTTPTimeout > 0 {
		client = &http.Client{Timeout: opts.HTTPTimeout}
		if deps.HTTPClient != nil {
			client.Transport = deps.HTTPClient.Transport
		}
	}

	return oidc.NewAuthenticator(deps.Secrets, oidc.NewDiscoveryCertificates(client), oidc.NewJWTCodec()), nil
}

// decodeOptions decodes the type specific fields of an authenticator config.
// The common "name" and "type" keys are ignored.
func decodeOptions(cfg config.AuthenticatorConfig, out any) error {
	raw := make(map[string]any, len(cfg.Config))
	for k, v := range cfg.Config {
		if k == "name" || k == "type" {
			continue
		}
		raw[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}
	return nil
}
