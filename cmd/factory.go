package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/authnd/internal/audit"
	"github.com/darmiel/authnd/internal/authenticators"
	"github.com/darmiel/authnd/internal/cliconfig"
	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
	"github.com/darmiel/authnd/internal/service"
	"github.com/darmiel/authnd/internal/session"
	"github.com/darmiel/authnd/internal/store"
	"github.com/darmiel/authnd/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the authnd server to connect to.
	RemoteAddr string

	// Command-specific flags
	ConfigPath string // server configuration: session, authenticators, accounts and audit
}

func NewFactory() *Factory {
	return &Factory{}
}

// Runtime bundles everything the server needs, built from one configuration file.
type Runtime struct {
	Config         *config.Config
	Service        *service.AuthnService
	Sessions       *session.Manager
	Authenticators *authenticators.Registry
	Directory      *store.InMemoryDirectory
	Auditor        core.Auditor
}

func (r *Runtime) Close() error {
	return r.Auditor.Close()
}

func (f *Factory) serverAddr() string {
	if f.RemoteAddr != "" { // prio 1: command-line flag
		return f.RemoteAddr
	}
	return viper.GetString(AddrKey) // prio 2: config/env
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.serverAddr()
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set AUTHND_ADDR)")
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			token = cred.Token
		}
	} else {
		log.Warn().Err(err).Msg("could not load saved credentials")
	}

	if envToken := viper.GetString(TokenKey); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	path := f.ConfigPath
	if path == "" {
		path = viper.GetString(ConfigKey)
	}
	if path == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set AUTHND_CONFIG)")
	}
	return config.Load(path)
}

// BuildRuntime loads the configuration and wires the directory, the
// authenticators, the audit sink and the session manager into an AuthnService.
// AUTHND_AUTHENTICATORS overrides the enabled authenticators of the config file.
func (f *Factory) BuildRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dir := store.NewInMemoryDirectory()
	dir.Load(cfg.Accounts)
	log.Info().Strs("accounts", dir.Accounts()).Msg("loaded accounts")

	registry, err := authenticators.BuildRegistry(cfg.Authenticators.Installed, authenticators.Dependencies{
		Secrets:     dir,
		Credentials: dir,
	})
	if err != nil {
		return nil, fmt.Errorf("building authenticator registry: %w", err)
	}
	log.Info().Strs("authenticators", registry.Names()).Msg("installed authenticators")

	auditor, err := audit.Build(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("building auditor: %w", err)
	}

	enabled := cfg.Authenticators.Enabled
	if env := viper.GetString(AuthenticatorsKey); env != "" {
		log.Info().Str("enabled", env).Msg("enabled authenticators overridden by environment")
		enabled = env
	}

	sessions := session.NewManager([]byte(cfg.Session.SigningKey), cfg.Session.Issuer, cfg.Session.TTL)
	return &Runtime{
		Config:         cfg,
		Service:        service.NewAuthnService(registry, dir, auditor, sessions, enabled),
		Sessions:       sessions,
		Authenticators: registry,
		Directory:      dir,
		Auditor:        auditor,
	}, nil
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The authnd server config file to use")
}
