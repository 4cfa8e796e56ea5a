package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

type Service struct {
	users repository.UserRepository
	guard *authz.Guard
}

func NewService(users repository.UserRepository, guard *authz.Guard) *Service {
	return &Service{users: users, guard: guard}
}

// Get returns a user profile. Everyone reads their own; super_admin
// reads anyone.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	if !actor.IsSuperAdmin() && actor.UserID != id {
		return nil, apperrors.Denied("profiles are private")
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.UserFilters) ([]*model.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("user listing is an administrative operation")
	}

	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return users, nil
}

// UpdateRole changes a user's role and pharmacy affiliation. Only a
// super_admin may escalate; pharmacy_admin requires an affiliation and
// no other role may carry one.
func (s *Service) UpdateRole(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateUserRoleRequest) (*model.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("role changes are reserved for super admins")
	}
	if req.Role == model.RolePharmacyAdmin && req.PharmacyID == nil {
		return nil, apperrors.BadRequest("pharmacy_admin requires a pharmacy_id", nil)
	}
	if req.Role != model.RolePharmacyAdmin && req.PharmacyID != nil {
		return nil, apperrors.BadRequest("only pharmacy_admin carries a pharmacy_id", nil)
	}

	if err := s.users.UpdateRole(ctx, id, req.Role, req.PharmacyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return user, nil
}
