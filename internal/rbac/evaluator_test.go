package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	ev := NewEvaluator("EDITOR", []string{"course:READ", "course:UPDATE"})

	assert.True(t, ev.HasPermission("course:READ"))
	assert.True(t, ev.HasPermission("course:UPDATE"))
	assert.False(t, ev.HasPermission("course:DELETE"))
	assert.False(t, ev.HasPermission(""))
}

func TestHasAnyPermission(t *testing.T) {
	ev := NewEvaluator("EDITOR", []string{"user:READ"})

	assert.True(t, ev.HasAnyPermission("user:READ", "course:UPDATE"))
	assert.False(t, ev.HasAnyPermission("course:READ", "course:UPDATE"))
	// Empty key list denies: authorization defaults closed.
	assert.False(t, ev.HasAnyPermission())
}

func TestHasAllPermissions(t *testing.T) {
	ev := NewEvaluator("EDITOR", []string{"user:READ"})

	assert.True(t, ev.HasAllPermissions("user:READ"))
	assert.False(t, ev.HasAllPermissions("user:READ", "course:UPDATE"))
	// Vacuous truth: requiring nothing is trivially satisfied.
	assert.True(t, ev.HasAllPermissions())
}

func TestNilEvaluatorDeniesEverything(t *testing.T) {
	var ev *Evaluator

	assert.False(t, ev.HasPermission("user:READ"))
	assert.False(t, ev.HasAnyPermission("user:READ"))
	assert.False(t, ev.HasAllPermissions("user:READ"))
	assert.True(t, ev.HasAllPermissions())
	assert.False(t, ev.IsAdmin())
	assert.False(t, ev.IsInstructor())
	assert.False(t, ev.IsStudent())
	assert.Empty(t, ev.RoleName())
}

func TestRoleClassification(t *testing.T) {
	cases := []struct {
		role       string
		admin      bool
		instructor bool
		student    bool
	}{
		{"ADMIN", true, false, false},
		{"admin", true, false, false},
		{"Instructor", false, true, false},
		{"STUDENT", false, false, true},
		{"SUPERADMIN", false, false, false},
		{"EDITOR", false, false, false},
		{"", false, false, false},
	}
	for _, tc := range cases {
		ev := NewEvaluator(tc.role, nil)
		assert.Equal(t, tc.admin, ev.IsAdmin(), "role %q", tc.role)
		assert.Equal(t, tc.instructor, ev.IsInstructor(), "role %q", tc.role)
		assert.Equal(t, tc.student, ev.IsStudent(), "role %q", tc.role)
	}
}

func TestMixedCheckScenario(t *testing.T) {
	// Actor holds only user:READ.
	ev := NewEvaluator("SUPPORT", []string{"user:READ"})

	assert.False(t, ev.HasAllPermissions("user:READ", "course:UPDATE"))
	assert.True(t, ev.HasAnyPermission("user:READ", "course:UPDATE"))
}
