package pharmacy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

const (
	onDutyCacheKey = "pharmacies:on_duty"
	onDutyCacheTTL = 30 * time.Second
)

// Service manages the pharmacy directory. The on-duty list is the
// hottest read in the system (every locator screen hits it) and is
// served from a short-lived cache; duty toggles invalidate it.
type Service struct {
	pharmacies repository.PharmacyRepository
	guard      *authz.Guard
	cache      *gocache.Cache
}

func NewService(pharmacies repository.PharmacyRepository, guard *authz.Guard) *Service {
	return &Service{
		pharmacies: pharmacies,
		guard:      guard,
		cache:      gocache.New(onDutyCacheTTL, time.Minute),
	}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreatePharmacyRequest) (*model.Pharmacy, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("pharmacy registration is reserved for super admins")
	}

	pharmacy := &model.Pharmacy{
		Name:      req.Name,
		Address:   req.Address,
		Phone:     req.Phone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := s.pharmacies.Create(ctx, pharmacy); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return pharmacy, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	pharmacy, err := s.pharmacies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("pharmacy", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return pharmacy, nil
}

// List returns the full directory; public.
func (s *Service) List(ctx context.Context) ([]*model.Pharmacy, error) {
	pharmacies, err := s.pharmacies.List(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return pharmacies, nil
}

// ListOnDuty returns pharmacies currently on duty, cached briefly.
func (s *Service) ListOnDuty(ctx context.Context) ([]*model.Pharmacy, error) {
	if cached, ok := s.cache.Get(onDutyCacheKey); ok {
		return cached.([]*model.Pharmacy), nil
	}

	pharmacies, err := s.pharmacies.ListOnDuty(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	s.cache.Set(onDutyCacheKey, pharmacies, onDutyCacheTTL)
	return pharmacies, nil
}

// SetDuty toggles a pharmacy's on-duty flag. Its own admin or a
// super_admin only.
func (s *Service) SetDuty(ctx context.Context, actor model.Actor, id uuid.UUID, onDuty bool) (*model.Pharmacy, error) {
	decision := s.guard.Authorize(actor, authz.OpUpdate, authz.Target{
		Entity:     model.EntityPharmacy,
		PharmacyID: &id,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	if err := s.pharmacies.SetDuty(ctx, id, onDuty); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("pharmacy", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	s.cache.Delete(onDutyCacheKey)

	return s.Get(ctx, id)
}

// SetVerified marks a pharmacy verified; super_admin only.
func (s *Service) SetVerified(ctx context.Context, actor model.Actor, id uuid.UUID, verified bool) (*model.Pharmacy, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("verification is reserved for super admins")
	}

	if err := s.pharmacies.SetVerified(ctx, id, verified); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("pharmacy", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return s.Get(ctx, id)
}
