package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"
)

// Repository defines the persistence operations the service needs.
type Repository interface {
	GetRole(ctx context.Context, roleID int64) (Role, error)
	FetchCatalog(ctx context.Context, roleID int64, roleName string) (PermissionCatalog, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, grants []Grant) error
}

// AuditEnqueuer records permission-change events out of band. A nil enqueuer
// disables the audit trail.
type AuditEnqueuer interface {
	PermissionsReplaced(ctx context.Context, roleID int64, actor string, keys []string) error
}

// Service orchestrates RBAC catalog and assignment operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	audit  AuditEnqueuer
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, audit AuditEnqueuer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, audit: audit}
}

// Role fetches a role by id.
func (s *Service) Role(ctx context.Context, roleID int64) (Role, error) {
	return s.repo.GetRole(ctx, roleID)
}

// Catalog builds the per-role permission catalog. Concurrent fetches for the
// same role collapse into a single repository call; each completed fetch is a
// fresh catalog, never merged with an earlier one.
func (s *Service) Catalog(ctx context.Context, roleID int64) (PermissionCatalog, error) {
	v, err, _ := s.group.Do(fmt.Sprintf("catalog/%d", roleID), func() (any, error) {
		role, err := s.repo.GetRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		catalog, err := s.repo.FetchCatalog(ctx, roleID, role.Name)
		if err != nil {
			return nil, err
		}
		if err := catalog.Normalize(role.Name); err != nil {
			return nil, err
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(PermissionCatalog), nil
}

// Replace persists grants as the role's complete permission set. An empty
// grant list is rejected here, before any repository call, enforcing the
// minimum-one-permission rule. Keys are validated, deduplicated, and filled
// with the baseline filter token when none is supplied.
func (s *Service) Replace(ctx context.Context, roleID int64, grants []Grant, actor string) error {
	if len(grants) == 0 {
		return ErrEmptySelection
	}
	seen := make(map[string]struct{}, len(grants))
	cleaned := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if _, _, err := SplitKey(g.Key); err != nil {
			return err
		}
		if _, dup := seen[g.Key]; dup {
			continue
		}
		seen[g.Key] = struct{}{}
		if g.FilterType == "" {
			g.FilterType = DefaultFilterType
		}
		cleaned = append(cleaned, g)
	}
	sort.Slice(cleaned, func(i, j int) bool { return cleaned[i].Key < cleaned[j].Key })

	if err := s.repo.ReplaceRolePermissions(ctx, roleID, cleaned); err != nil {
		return err
	}

	if s.audit != nil {
		keys := make([]string, len(cleaned))
		for i, g := range cleaned {
			keys[i] = g.Key
		}
		if err := s.audit.PermissionsReplaced(ctx, roleID, actor, keys); err != nil {
			// The assignment itself succeeded; a lost audit event is logged,
			// not surfaced to the operator.
			s.logger.Error("enqueue permission audit event",
				slog.Int64("role_id", roleID), slog.Any("error", err))
		}
	}
	return nil
}

// AssignedView builds the read-only grouped view of the role's currently
// assigned permissions.
func (s *Service) AssignedView(ctx context.Context, roleID int64) (RoleView, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return RoleView{}, err
	}
	catalog, err := s.Catalog(ctx, roleID)
	if err != nil {
		return RoleView{}, err
	}
	return BuildRoleView(s.logger, role.Name, catalog.ToResponse()), nil
}
