package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu           sync.Mutex
	roles        map[int64]Role
	catalogs     map[int64]PermissionCatalog
	replaceErr   error
	replaced     map[int64][]Grant
	replaceCalls int
	fetchCalls   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		roles:    make(map[int64]Role),
		catalogs: make(map[int64]PermissionCatalog),
		replaced: make(map[int64][]Grant),
	}
}

func (m *mockRepo) GetRole(ctx context.Context, roleID int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *mockRepo) FetchCatalog(ctx context.Context, roleID int64, roleName string) (PermissionCatalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	catalog, ok := m.catalogs[roleID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(PermissionCatalog, len(catalog))
	for resource, perms := range catalog {
		cp := make([]Permission, len(perms))
		copy(cp, perms)
		out[resource] = cp
	}
	return out, nil
}

func (m *mockRepo) ReplaceRolePermissions(ctx context.Context, roleID int64, grants []Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced[roleID] = grants
	return nil
}

type mockAudit struct {
	mu     sync.Mutex
	err    error
	events []auditEvent
}

type auditEvent struct {
	roleID int64
	actor  string
	keys   []string
}

func (m *mockAudit) PermissionsReplaced(ctx context.Context, roleID int64, actor string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, auditEvent{roleID: roleID, actor: actor, keys: keys})
	return nil
}

func TestCatalogClampsRestrictedPermissions(t *testing.T) {
	repo := newMockRepo()
	repo.roles[7] = Role{ID: 7, Name: "EDITOR"}
	repo.catalogs[7] = PermissionCatalog{
		"course": {
			{Key: "course:READ", Resource: "course", Action: "READ", CanAssignToRole: true},
			{Key: "course:APPROVE", Resource: "course", Action: "APPROVE", IsRestricted: true,
				AllowedRoles: []string{"ADMIN"}, CanAssignToRole: true},
		},
	}
	svc := NewService(repo, nil, nil)

	catalog, err := svc.Catalog(context.Background(), 7)
	require.NoError(t, err)

	approve, ok := catalog.Find("course:APPROVE")
	require.True(t, ok)
	assert.False(t, approve.CanAssignToRole)
	read, _ := catalog.Find("course:READ")
	assert.True(t, read.CanAssignToRole)
}

func TestCatalogAllowsRestrictedForPermittedRole(t *testing.T) {
	repo := newMockRepo()
	repo.roles[1] = Role{ID: 1, Name: "ADMIN"}
	repo.catalogs[1] = PermissionCatalog{
		"course": {
			{Key: "course:APPROVE", Resource: "course", Action: "APPROVE", IsRestricted: true,
				AllowedRoles: []string{"ADMIN"}, CanAssignToRole: true},
		},
	}
	svc := NewService(repo, nil, nil)

	catalog, err := svc.Catalog(context.Background(), 1)
	require.NoError(t, err)
	approve, _ := catalog.Find("course:APPROVE")
	assert.True(t, approve.CanAssignToRole)
}

func TestCatalogUnknownRole(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	_, err := svc.Catalog(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRejectsDuplicateKeys(t *testing.T) {
	repo := newMockRepo()
	repo.roles[7] = Role{ID: 7, Name: "EDITOR"}
	repo.catalogs[7] = PermissionCatalog{
		"course": {{Key: "course:READ", Resource: "course", CanAssignToRole: true}},
		"legacy": {{Key: "course:READ", Resource: "legacy", CanAssignToRole: true}},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.Catalog(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate permission key")
}

func TestReplaceEmptyGrantsNeverHitsRepository(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	err := svc.Replace(context.Background(), 7, nil, "u-1")
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Zero(t, repo.replaceCalls)
}

func TestReplaceValidatesKeys(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	err := svc.Replace(context.Background(), 7, []Grant{{Key: "no-colon"}}, "u-1")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Zero(t, repo.replaceCalls)
}

func TestReplaceDeduplicatesAndFillsDefaultFilter(t *testing.T) {
	repo := newMockRepo()
	audit := &mockAudit{}
	svc := NewService(repo, nil, audit)

	grants := []Grant{
		{Key: "course:UPDATE", FilterType: "OWN_COURSES"},
		{Key: "course:READ"},
		{Key: "course:READ", FilterType: "IGNORED_DUP"},
	}
	require.NoError(t, svc.Replace(context.Background(), 7, grants, "u-1"))

	assert.Equal(t, []Grant{
		{Key: "course:READ", FilterType: DefaultFilterType},
		{Key: "course:UPDATE", FilterType: "OWN_COURSES"},
	}, repo.replaced[7])

	require.Len(t, audit.events, 1)
	assert.Equal(t, int64(7), audit.events[0].roleID)
	assert.Equal(t, "u-1", audit.events[0].actor)
	assert.Equal(t, []string{"course:READ", "course:UPDATE"}, audit.events[0].keys)
}

func TestReplaceAuditFailureDoesNotFailSave(t *testing.T) {
	repo := newMockRepo()
	audit := &mockAudit{err: errors.New("queue down")}
	svc := NewService(repo, nil, audit)

	err := svc.Replace(context.Background(), 7, []Grant{{Key: "course:READ"}}, "u-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.replaceCalls)
}

func TestReplaceRepositoryFailureSkipsAudit(t *testing.T) {
	repo := newMockRepo()
	repo.replaceErr = errors.New("db down")
	audit := &mockAudit{}
	svc := NewService(repo, nil, audit)

	err := svc.Replace(context.Background(), 7, []Grant{{Key: "course:READ"}}, "u-1")
	require.Error(t, err)
	assert.Empty(t, audit.events)
}

func TestAssignedViewUsesRoleName(t *testing.T) {
	repo := newMockRepo()
	repo.roles[7] = Role{ID: 7, Name: "EDITOR"}
	repo.catalogs[7] = PermissionCatalog{
		"course": {
			{Key: "course:READ", Resource: "course", Action: "READ",
				Description: "Read courses", CanAssignToRole: true, IsAssigned: true},
			{Key: "course:UPDATE", Resource: "course", Action: "UPDATE", CanAssignToRole: true},
		},
	}
	svc := NewService(repo, nil, nil)

	view, err := svc.AssignedView(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "EDITOR", view.RoleName)
	assert.Equal(t, 1, view.TotalAssigned)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, 1, view.Groups[0].AssignedCount)
	assert.Equal(t, 2, view.Groups[0].TotalCount)
}
