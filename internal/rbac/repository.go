package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursedesk/coursedesk/internal/platform/db"
)

// PgRepository provides PostgreSQL backed persistence for the permission
// catalog and role assignments.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository over the given pool.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// GetRole fetches role identity, held permission keys, and user count.
func (r *PgRepository) GetRole(ctx context.Context, roleID int64) (Role, error) {
	const query = `
		SELECT r.id, r.name,
			COALESCE((SELECT array_agg(rp.permission_key ORDER BY rp.permission_key)
				FROM role_permissions rp WHERE rp.role_id = r.id), '{}'),
			(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id)
		FROM roles r
		WHERE r.id = $1`
	var role Role
	err := r.pool.QueryRow(ctx, query, roleID).Scan(&role.ID, &role.Name, &role.Permissions, &role.TotalUsers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("rbac: get role: %w", err)
	}
	return role, nil
}

// FetchCatalog loads every permission with its assignment flags for the
// role. Assignability is derived here: system-managed permissions are never
// togglable, and restricted permissions are togglable only for roles named
// in their allow list.
func (r *PgRepository) FetchCatalog(ctx context.Context, roleID int64, roleName string) (PermissionCatalog, error) {
	const query = `
		SELECT p.key, p.description, p.resource, p.action,
			COALESCE(p.filter_type, ''), p.is_restricted,
			COALESCE(p.allowed_roles, '{}'), p.is_system,
			rp.permission_key IS NOT NULL AS is_assigned
		FROM permissions p
		LEFT JOIN role_permissions rp
			ON rp.permission_key = p.key AND rp.role_id = $1
		ORDER BY p.resource, p.key`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: fetch catalog: %w", err)
	}
	defer rows.Close()

	catalog := make(PermissionCatalog)
	for rows.Next() {
		var p Permission
		var isSystem bool
		if err := rows.Scan(&p.Key, &p.Description, &p.Resource, &p.Action,
			&p.FilterType, &p.IsRestricted, &p.AllowedRoles, &isSystem, &p.IsAssigned); err != nil {
			return nil, fmt.Errorf("rbac: scan catalog row: %w", err)
		}
		p.CanAssignToRole = !isSystem && (!p.IsRestricted || roleAllowed(roleName, p.AllowedRoles))
		catalog[p.Resource] = append(catalog[p.Resource], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: fetch catalog: %w", err)
	}
	return catalog, nil
}

// ReplaceRolePermissions swaps the role's entire permission set for the
// given grants inside one transaction. The caller has already rejected an
// empty grant list.
func (r *PgRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, grants []Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
			return fmt.Errorf("rbac: check role: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("rbac: clear role permissions: %w", err)
		}
		batch := &pgx.Batch{}
		for _, g := range grants {
			batch.Queue(`INSERT INTO role_permissions (role_id, permission_key, filter_type) VALUES ($1, $2, $3)`,
				roleID, g.Key, g.FilterType)
		}
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range grants {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("rbac: insert role permission: %w", err)
			}
		}
		return results.Close()
	})
}
