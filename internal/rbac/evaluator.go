package rbac

import "strings"

// Evaluator answers permission checks for the acting role. It is a pure,
// read-only view over the permission keys resolved at session start; it never
// fetches anything itself. A nil Evaluator behaves as an unauthenticated
// actor: every check denies.
type Evaluator struct {
	roleName string
	held     map[string]struct{}
}

// NewEvaluator builds an Evaluator from the actor's role name and held keys.
func NewEvaluator(roleName string, keys []string) *Evaluator {
	held := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return &Evaluator{roleName: roleName, held: held}
}

// RoleName returns the actor's role name, empty for a nil evaluator.
func (e *Evaluator) RoleName() string {
	if e == nil {
		return ""
	}
	return e.roleName
}

// HasPermission reports whether the actor holds the given key.
func (e *Evaluator) HasPermission(key string) bool {
	if e == nil {
		return false
	}
	_, ok := e.held[key]
	return ok
}

// HasAnyPermission reports whether the actor holds at least one of the keys.
// An empty key list denies: authorization defaults closed.
func (e *Evaluator) HasAnyPermission(keys ...string) bool {
	if e == nil {
		return false
	}
	for _, k := range keys {
		if _, ok := e.held[k]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the actor holds every key. An empty key
// list is vacuously true: requiring nothing is trivially satisfied. Callers
// must not rely on this to skip checks; pass the keys they actually require.
func (e *Evaluator) HasAllPermissions(keys ...string) bool {
	if e == nil {
		return len(keys) == 0
	}
	for _, k := range keys {
		if _, ok := e.held[k]; !ok {
			return false
		}
	}
	return true
}

// IsAdmin reports whether the actor's role is the built-in ADMIN role.
// Custom role names never classify as admin.
func (e *Evaluator) IsAdmin() bool {
	return e != nil && strings.EqualFold(e.roleName, RoleAdmin)
}

// IsInstructor reports whether the actor's role is the built-in INSTRUCTOR role.
func (e *Evaluator) IsInstructor() bool {
	return e != nil && strings.EqualFold(e.roleName, RoleInstructor)
}

// IsStudent reports whether the actor's role is the built-in STUDENT role.
func (e *Evaluator) IsStudent() bool {
	return e != nil && strings.EqualFold(e.roleName, RoleStudent)
}
