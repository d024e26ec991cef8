package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultSessionTTL = 8 * time.Minute
	DefaultIssuer     = "authnd"
)

// Role kinds accepted in account definitions.
var roleKinds = []string{"user", "host", "group", "layer"}

type Config struct {
	Session        SessionConfig        `yaml:"session"`
	Authenticators AuthenticatorsConfig `yaml:"authenticators"`
	Accounts       []AccountConfig      `yaml:"accounts"`
	Audit          AuditConfig          `yaml:"audit"`
}

// SessionConfig holds configuration for the access tokens returned after a login.
type SessionConfig struct {
	// SigningKey is the HMAC key used to sign access tokens.
	SigningKey string `yaml:"signing_key"`

	// TTL is the lifetime of an access token. Defaults to 8 minutes.
	TTL time.Duration `yaml:"ttl"`

	// Issuer is written into the "iss" claim. Defaults to "authnd".
	Issuer string `yaml:"issuer"`
}

// AuthenticatorsConfig holds the installed authenticator implementations and
// the list of webservices enabled for login.
type AuthenticatorsConfig struct {
	// Enabled is the comma separated whitelist of webservices,
	// e.g. "authn,authn-oidc/okta". Empty enables only "authn".
	Enabled string `yaml:"enabled"`

	Installed []AuthenticatorConfig `yaml:"installed"`
}

// AuthenticatorConfig holds configuration for an installed authenticator.
type AuthenticatorConfig struct {
	// Name is the path segment the authenticator is addressed with. Defaults to Type.
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "authn", "authn-oidc", "stub"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// Key returns the name the authenticator is registered under.
func (a AuthenticatorConfig) Key() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Type
}

// AccountConfig describes the roles, resources and variables of one account.
type AccountConfig struct {
	Name      string           `yaml:"name"`
	Roles     []RoleConfig     `yaml:"roles"`
	Resources []ResourceConfig `yaml:"resources"`

	// Variables maps variable ids (e.g. "conjur/authn-oidc/okta/provider-uri")
	// to their current value. An empty value defines the variable without a secret.
	Variables map[string]string `yaml:"variables"`
}

type RoleConfig struct {
	// Kind of the role, defaults to "user".
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`

	// APIKeyHash is the bcrypt hash of the API key of the role.
	// Roles without a hash cannot log in with the authn authenticator.
	APIKeyHash string `yaml:"api_key_hash"`
}

type ResourceConfig struct {
	Kind string `yaml:"kind"` // e.g., "webservice", "variable"
	ID   string `yaml:"id"`

	// Owner is a role reference of the form "kind:id". Defaults to the account admin.
	Owner string `yaml:"owner"`

	Permit []PermitConfig `yaml:"permit"`
}

// PermitConfig grants privileges on a resource to a role.
type PermitConfig struct {
	// Role is a role reference of the form "kind:id", e.g. "user:alice".
	Role       string   `yaml:"role"`
	Privileges []string `yaml:"privileges"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool        `yaml:"enabled"`
	Type    string      `yaml:"type"` // e.g., "file", "memory", "redis"
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the connection of the redis audit sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Stream is the key of the redis stream events are appended to.
	Stream string `yaml:"stream"`

	// MaxLen caps the stream length approximately, 0 means unbounded.
	MaxLen int64 `yaml:"max_len"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = DefaultIssuer
	}
	for i := range c.Accounts {
		for j := range c.Accounts[i].Roles {
			if c.Accounts[i].Roles[j].Kind == "" {
				c.Accounts[i].Roles[j].Kind = "user"
			}
		}
	}
	if c.Audit.Type == "redis" && c.Audit.Redis.Stream == "" {
		c.Audit.Redis.Stream = "authnd:audit"
	}
}

func (c *Config) Validate() error {
	if c.Session.SigningKey == "" {
		return errors.New("session.signing_key is required")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative, got %s", c.Session.TTL)
	}

	installed := make(map[string]struct{})
	for idx, a := range c.Authenticators.Installed {
		if a.Type == "" {
			return fmt.Errorf("authenticator at index %d has empty type", idx)
		}
		key := a.Key()
		if strings.Contains(key, "/") {
			return fmt.Errorf("authenticator name %q must not contain '/'", key)
		}
		if _, dup := installed[key]; dup {
			return fmt.Errorf("authenticator %q is installed more than once", key)
		}
		installed[key] = struct{}{}
	}

	accounts := make(map[string]struct{})
	for idx, acc := range c.Accounts {
		if acc.Name == "" {
			return fmt.Errorf("account at index %d has empty name", idx)
		}
		if strings.Contains(acc.Name, ":") {
			return fmt.Errorf("account name %q must not contain ':'", acc.Name)
		}
		if _, dup := accounts[acc.Name]; dup {
			return fmt.Errorf("account %q is defined more than once", acc.Name)
		}
		accounts[acc.Name] = struct{}{}

		if err := acc.validate(); err != nil {
			return fmt.Errorf("validating account %q: %w", acc.Name, err)
		}
	}

	if c.Audit.Enabled {
		if err := c.Audit.validate(); err != nil {
			return fmt.Errorf("validating audit: %w", err)
		}
	}
	return nil
}

func (a *AccountConfig) validate() error {
	roles := make(map[string]struct{})
	for idx, r := range a.Roles {
		if r.ID == "" {
			return fmt.Errorf("role at index %d has empty id", idx)
		}
		if !slices.Contains(roleKinds, r.Kind) {
			return fmt.Errorf("role %q has unknown kind %q", r.ID, r.Kind)
		}
		roles[r.Kind+":"+r.ID] = struct{}{}
	}
	// the admin user always exists
	roles["user:admin"] = struct{}{}

	for idx, res := range a.Resources {
		if res.Kind == "" || res.ID == "" {
			return fmt.Errorf("resource at index %d needs kind and id", idx)
		}
		if res.Owner != "" {
			if _, ok := roles[res.Owner]; !ok {
				return fmt.Errorf("resource %s:%s is owned by undefined role %q", res.Kind, res.ID, res.Owner)
			}
		}
		for _, p := range res.Permit {
			if _, ok := roles[p.Role]; !ok {
				return fmt.Errorf("resource %s:%s permits undefined role %q", res.Kind, res.ID, p.Role)
			}
			if len(p.Privileges) == 0 {
				return fmt.Errorf("permit of role %q on %s:%s has no privileges", p.Role, res.Kind, res.ID)
			}
		}
	}
	return nil
}

func (a *AuditConfig) validate() error {
	switch a.Type {
	case "memory", "noop":
	case "file":
		if a.Path == "" {
			return errors.New("path is required for file audit")
		}
	case "redis":
		if a.Redis.Addr == "" {
			return errors.New("redis.addr is required for redis audit")
		}
	default:
		return fmt.Errorf("unknown audit type %q", a.Type)
	}
	return nil
}
