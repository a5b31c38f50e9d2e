package roles

import (
	"context"
	"strings"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles with usage counts.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole inserts a new role. Names are stored uppercase so role
// comparisons elsewhere can stay case insensitive.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}
