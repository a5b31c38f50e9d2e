package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Well-known built-in role names.
const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

// DefaultFilterType is the baseline row-level scope token submitted for
// permissions that do not carry their own filter type. The token is opaque
// here; the permission service interprets it.
const DefaultFilterType = "DEFAULT"

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrEmptySelection indicates a save attempt with no permissions selected.
	ErrEmptySelection = errors.New("rbac: role must have at least 1 permission")
	// ErrNotAssignable indicates a toggle on a fixed or restricted permission.
	ErrNotAssignable = errors.New("rbac: permission cannot be assigned to this role")
	// ErrNotReady indicates an editor operation outside the Ready state.
	ErrNotReady = errors.New("rbac: editor not ready")
	// ErrInvalidKey indicates a malformed permission key.
	ErrInvalidKey = errors.New("rbac: invalid permission key")
)

// Permission is a single capability, optionally enriched with role context
// (IsAssigned, CanAssignToRole) when it appears in a role's catalog view.
type Permission struct {
	Key             string
	Description     string
	Resource        string
	Action          string
	FilterType      string // empty means no row-level scope rule
	IsRestricted    bool
	AllowedRoles    []string
	CanAssignToRole bool
	IsAssigned      bool
}

// Role is a view over the permission service's role record.
type Role struct {
	ID          int64
	Name        string
	Permissions []string
	TotalUsers  int
}

// Grant pairs a permission key with the filter token submitted on save.
type Grant struct {
	Key        string
	FilterType string
}

// PermissionCatalog maps a resource name to its permissions, enriched for a
// specific role. A catalog is built fresh on every fetch and never merged
// with a previous one.
type PermissionCatalog map[string][]Permission

// SplitKey parses a permission key of the form resource:ACTION. The resource
// is everything before the first colon.
func SplitKey(key string) (resource, action string, err error) {
	resource, action, ok := strings.Cut(key, ":")
	if !ok || resource == "" || action == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return resource, action, nil
}

// Resources returns the catalog's resource names in stable sorted order.
func (c PermissionCatalog) Resources() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssignedKeys collects the keys of all permissions flagged as assigned.
func (c PermissionCatalog) AssignedKeys() []string {
	var keys []string
	for _, name := range c.Resources() {
		for _, p := range c[name] {
			if p.IsAssigned {
				keys = append(keys, p.Key)
			}
		}
	}
	return keys
}

// Find returns the catalog entry for key, if present.
func (c PermissionCatalog) Find(key string) (Permission, bool) {
	for _, perms := range c {
		for _, p := range perms {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Permission{}, false
}

// Normalize validates catalog invariants for the given role and clamps
// CanAssignToRole on restricted permissions the role is not allowed to hold.
// Duplicate keys across the whole catalog are rejected.
func (c PermissionCatalog) Normalize(roleName string) error {
	seen := make(map[string]struct{})
	for resource, perms := range c {
		for i, p := range perms {
			if _, dup := seen[p.Key]; dup {
				return fmt.Errorf("rbac: duplicate permission key %q", p.Key)
			}
			seen[p.Key] = struct{}{}
			if p.IsRestricted && !roleAllowed(roleName, p.AllowedRoles) {
				c[resource][i].CanAssignToRole = false
			}
		}
	}
	return nil
}

func roleAllowed(roleName string, allowed []string) bool {
	for _, name := range allowed {
		if strings.EqualFold(name, roleName) {
			return true
		}
	}
	return false
}
