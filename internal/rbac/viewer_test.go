package rbac

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestBuildRoleViewShowsAssignedOnly(t *testing.T) {
	catalog := CatalogResponse{
		"course": {
			{PermissionKey: "course:READ", Name: "Read courses", IsAssigned: true},
			{PermissionKey: "course:CREATE", Name: "Create courses"},
			{PermissionKey: "course:UPDATE", Name: "Update courses", IsAssigned: true,
				FilterType: strptr("OWN_COURSES")},
		},
		"user": {
			{PermissionKey: "user:READ", Name: "Read users"},
		},
	}

	view := BuildRoleView(nil, "EDITOR", catalog)

	assert.Equal(t, "EDITOR", view.RoleName)
	assert.Equal(t, 2, view.TotalAssigned)
	// Groups with nothing assigned are omitted entirely.
	assert.Equal(t, 1, view.GroupCount)
	require.Len(t, view.Groups, 1)

	group := view.Groups[0]
	assert.Equal(t, "course", group.Resource)
	assert.Equal(t, "Course", group.Label)
	assert.Equal(t, 2, group.AssignedCount)
	assert.Equal(t, 3, group.TotalCount)
	require.Len(t, group.Permissions, 2)
	assert.Equal(t, "Read courses", group.Permissions[0].DisplayName)
	assert.Equal(t, "OWN_COURSES", group.Permissions[1].FilterType)
}

func TestBuildRoleViewGroupOrderIsStable(t *testing.T) {
	catalog := CatalogResponse{
		"user":    {{PermissionKey: "user:READ", IsAssigned: true}},
		"course":  {{PermissionKey: "course:READ", IsAssigned: true}},
		"payment": {{PermissionKey: "payment:READ", IsAssigned: true}},
	}

	view := BuildRoleView(nil, "ADMIN", catalog)

	require.Len(t, view.Groups, 3)
	assert.Equal(t, "course", view.Groups[0].Resource)
	assert.Equal(t, "payment", view.Groups[1].Resource)
	assert.Equal(t, "user", view.Groups[2].Resource)
}

func TestDisplayNameResolutionOrder(t *testing.T) {
	full := PermissionDescriptor{Name: "Read", PermissionKey: "course:READ", Action: "READ"}
	name, fellBack := full.DisplayName(0)
	assert.Equal(t, "Read", name)
	assert.False(t, fellBack)

	noName := PermissionDescriptor{PermissionKey: "course:READ", Action: "READ"}
	name, fellBack = noName.DisplayName(0)
	assert.Equal(t, "course:READ", name)
	assert.False(t, fellBack)

	actionOnly := PermissionDescriptor{Action: "READ"}
	name, fellBack = actionOnly.DisplayName(0)
	assert.Equal(t, "READ", name)
	assert.False(t, fellBack)

	empty := PermissionDescriptor{}
	name, fellBack = empty.DisplayName(4)
	assert.Equal(t, "permission-5", name)
	assert.True(t, fellBack)
}

func TestBuildRoleViewLogsFallbackResolution(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	catalog := CatalogResponse{
		"course": {{IsAssigned: true}},
	}

	view := BuildRoleView(logger, "EDITOR", catalog)

	require.Len(t, view.Groups, 1)
	assert.Equal(t, "permission-1", view.Groups[0].Permissions[0].DisplayName)
	assert.Contains(t, buf.String(), "missing display fields")
}

func TestBuildRoleViewEmptyCatalog(t *testing.T) {
	view := BuildRoleView(nil, "EDITOR", CatalogResponse{})
	assert.Zero(t, view.TotalAssigned)
	assert.Zero(t, view.GroupCount)
	assert.Empty(t, view.Groups)
}
