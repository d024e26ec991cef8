package core

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by repositories when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Privileges checked by the authenticators.
const (
	PrivilegeRead         = "read"
	PrivilegeAuthenticate = "authenticate"
)

// Role is an identity that can be granted privileges, e.g. "cucumber:user:alice".
type Role struct {
	ID string `json:"id"`
}

// RoleID builds a fully qualified role id.
func RoleID(account, kind, id string) string {
	return account + ":" + kind + ":" + id
}

// ResourceID builds a fully qualified resource id.
func ResourceID(account, kind, id string) string {
	return account + ":" + kind + ":" + id
}

// AdminRoleID returns the id of the administrative user of an account.
func AdminRoleID(account string) string {
	return RoleID(account, "user", "admin")
}

// RoleIDFromLogin turns a login name into a role id.
// Logins of hosts are prefixed with "host/", everything else is a user.
func RoleIDFromLogin(account, login string) string {
	if id, ok := strings.CutPrefix(login, "host/"); ok {
		return RoleID(account, "host", id)
	}
	return RoleID(account, "user", login)
}

func (r Role) parts() (account, kind, id string) {
	parts := strings.SplitN(r.ID, ":", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return "", parts[0], parts[1]
	default:
		return "", "", r.ID
	}
}

// Account returns the account part of the role id.
func (r Role) Account() string {
	account, _, _ := r.parts()
	return account
}

// Kind returns the kind part of the role id (e.g. "user", "host").
func (r Role) Kind() string {
	_, kind, _ := r.parts()
	return kind
}

// Identifier returns the id part of the role id.
func (r Role) Identifier() string {
	_, _, id := r.parts()
	return id
}

// Username returns the login name of the role. Users are referred to by their
// id only, every other kind is prefixed with the kind.
func (r Role) Username() string {
	_, kind, id := r.parts()
	if kind == "user" {
		return id
	}
	return kind + "/" + id
}

// Resource is a protected object, e.g. a webservice or a variable.
type Resource struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"`
}

// Account returns the account part of the resource id.
func (r Resource) Account() string {
	account, _, _ := strings.Cut(r.ID, ":")
	return account
}
