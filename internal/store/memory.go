package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
)

var (
	_ core.RoleRepository       = (*InMemoryDirectory)(nil)
	_ core.ResourceRepository   = (*InMemoryDirectory)(nil)
	_ core.Authorizer           = (*InMemoryDirectory)(nil)
	_ core.SecretRepository     = (*InMemoryDirectory)(nil)
	_ core.CredentialRepository = (*InMemoryDirectory)(nil)
)

type grant struct {
	roleID    string
	privilege string
}

// InMemoryDirectory holds the roles, resources, permissions and secrets of
// all accounts. The admin user of an account is allowed everything in it.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	roles     map[string]*core.Role
	apiKeys   map[string][]byte
	resources map[string]*core.Resource
	permits   map[string][]grant // resource id -> grants
	secrets   map[string]string  // variable id -> value
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		roles:     make(map[string]*core.Role),
		apiKeys:   make(map[string][]byte),
		resources: make(map[string]*core.Resource),
		permits:   make(map[string][]grant),
		secrets:   make(map[string]string),
	}
}

// Load replaces the directory contents with the given account definitions.
func (d *InMemoryDirectory) Load(accounts []config.AccountConfig) {
	next := NewInMemoryDirectory()
	for _, acc := range accounts {
		next.loadAccount(acc)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles = next.roles
	d.apiKeys = next.apiKeys
	d.resources = next.resources
	d.permits = next.permits
	d.secrets = next.secrets
}

func (d *InMemoryDirectory) loadAccount(acc config.AccountConfig) {
	adminID := core.AdminRoleID(acc.Name)
	d.roles[adminID] = &core.Role{ID: adminID}

	for _, r := range acc.Roles {
		id := core.RoleID(acc.Name, r.Kind, r.ID)
		d.roles[id] = &core.Role{ID: id}
		if r.APIKeyHash != "" {
			d.apiKeys[id] = []byte(r.APIKeyHash)
		}
	}

	for _, res := range acc.Resources {
		id := core.ResourceID(acc.Name, res.Kind, res.ID)
		owner := adminID
		if res.Owner != "" {
			owner = acc.Name + ":" + res.Owner
		}
		d.resources[id] = &core.Resource{ID: id, Owner: owner}
		for _, p := range res.Permit {
			for _, priv := range p.Privileges {
				d.permits[id] = append(d.permits[id], grant{roleID: acc.Name + ":" + p.Role, privilege: priv})
			}
		}
	}

	for name, value := range acc.Variables {
		id := core.ResourceID(acc.Name, "variable", name)
		d.secrets[id] = value
		if _, ok := d.resources[id]; !ok {
			d.resources[id] = &core.Resource{ID: id, Owner: adminID}
		}
	}
}

func (d *InMemoryDirectory) Role(_ context.Context, id string) (*core.Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	role, ok := d.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, core.ErrNotFound)
	}
	return &core.Role{ID: role.ID}, nil
}

func (d *InMemoryDirectory) Resource(_ context.Context, id string) (*core.Resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res, ok := d.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", id, core.ErrNotFound)
	}
	copied := *res
	return &copied, nil
}

// Allowed reports whether role holds privilege on resource, either through an
// explicit permit, through ownership or as admin of the resource's account.
func (d *InMemoryDirectory) Allowed(_ context.Context, role *core.Role, privilege string, resource *core.Resource) (bool, error) {
	if role == nil || resource == nil {
		return false, nil
	}
	if role.ID == core.AdminRoleID(resource.Account()) {
		return true, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if stored, ok := d.resources[resource.ID]; ok && stored.Owner == role.ID {
		return true, nil
	}
	return slices.Contains(d.permits[resource.ID], grant{roleID: role.ID, privilege: privilege}), nil
}

func (d *InMemoryDirectory) Secret(_ context.Context, id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.secrets[id]
	if !ok {
		return "", fmt.Errorf("variable %s: %w", id, core.ErrNotFound)
	}
	return value, nil
}

func (d *InMemoryDirectory) APIKeyHash(_ context.Context, roleID string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hash, ok := d.apiKeys[roleID]
	if !ok {
		return nil, fmt.Errorf("api key of %s: %w", roleID, core.ErrNotFound)
	}
	return slices.Clone(hash), nil
}

// Accounts returns the sorted names of all loaded accounts.
func (d *InMemoryDirectory) Accounts() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var accounts []string
	for id := range d.roles {
		role := core.Role{ID: id}
		if role.Kind() == "user" && role.Identifier() == "admin" {
			accounts = append(accounts, role.Account())
		}
	}
	slices.Sort(accounts)
	return accounts
}
