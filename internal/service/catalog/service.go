package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

// Service covers the medication catalog, per-pharmacy stock and the
// availability search behind the locator screen.
type Service struct {
	medications repository.MedicationRepository
	stocks      repository.StockRepository
	guard       *authz.Guard
}

func NewService(medications repository.MedicationRepository, stocks repository.StockRepository, guard *authz.Guard) *Service {
	return &Service{
		medications: medications,
		stocks:      stocks,
		guard:       guard,
	}
}

// CreateMedication adds catalog reference data; super_admin only.
func (s *Service) CreateMedication(ctx context.Context, actor model.Actor, req *model.CreateMedicationRequest) (*model.Medication, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("catalog changes are reserved for super admins")
	}

	medication := &model.Medication{Name: req.Name, Category: req.Category}
	if err := s.medications.Create(ctx, medication); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return medication, nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	medication, err := s.medications.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("medication", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return medication, nil
}

// SearchMedications is a public catalog search
func (s *Service) SearchMedications(ctx context.Context, term string) ([]*model.Medication, error) {
	medications, err := s.medications.List(ctx, term)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return medications, nil
}

// UpsertStock sets a pharmacy's quantity and price for a medication.
// Only the pharmacy's own admin (or a super_admin) may touch it.
func (s *Service) UpsertStock(ctx context.Context, actor model.Actor, pharmacyID uuid.UUID, req *model.UpsertStockRequest) (*model.Stock, error) {
	decision := s.guard.Authorize(actor, authz.OpUpdate, authz.Target{
		Entity:     model.EntityStock,
		PharmacyID: &pharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	if _, err := s.medications.Get(ctx, req.MedicationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("medication", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	stock := &model.Stock{
		PharmacyID:   pharmacyID,
		MedicationID: req.MedicationID,
		Quantity:     req.Quantity,
		Price:        req.Price,
	}
	if err := s.stocks.Upsert(ctx, stock); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return stock, nil
}

// ListStock returns a pharmacy's inventory; its admin or a super_admin.
func (s *Service) ListStock(ctx context.Context, actor model.Actor, pharmacyID uuid.UUID) ([]*model.Stock, error) {
	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityStock,
		PharmacyID: &pharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	stocks, err := s.stocks.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return stocks, nil
}

// FindAvailability is the locator query: on-duty pharmacies holding a
// medication, with price and quantity. Public.
func (s *Service) FindAvailability(ctx context.Context, medicationID uuid.UUID) ([]*model.StockAvailability, error) {
	if _, err := s.medications.Get(ctx, medicationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("medication", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	availability, err := s.stocks.FindAvailability(ctx, medicationID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return availability, nil
}
