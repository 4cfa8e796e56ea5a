package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/service/outbox"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

type Service struct {
	prescriptions repository.PrescriptionRepository
	engine        *workflow.Engine
	guard         *authz.Guard
	enqueuer      *outbox.Enqueuer
}

func NewService(prescriptions repository.PrescriptionRepository, engine *workflow.Engine, guard *authz.Guard, enqueuer *outbox.Enqueuer) *Service {
	return &Service{
		prescriptions: prescriptions,
		engine:        engine,
		guard:         guard,
		enqueuer:      enqueuer,
	}
}

// Create uploads a prescription for review by the chosen pharmacy
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	patientID := actor.UserID
	decision := s.guard.Authorize(actor, authz.OpCreate, authz.Target{
		Entity:     model.EntityPrescription,
		PharmacyID: &req.PharmacyID,
		PatientID:  &patientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	prescription := &model.Prescription{
		PatientID:  patientID,
		PharmacyID: req.PharmacyID,
		ImageURL:   req.ImageURL,
		Status:     model.PrescriptionStatusPending,
	}
	if err := s.prescriptions.Create(ctx, prescription); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return prescription, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Prescription, error) {
	prescription, err := s.prescriptions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("prescription", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityPrescription,
		PharmacyID: &prescription.PharmacyID,
		PatientID:  &prescription.PatientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	return prescription, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Prescription, error) {
	prescriptions, err := s.prescriptions.ListByPatient(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return prescriptions, nil
}

func (s *Service) ListForPharmacy(ctx context.Context, actor model.Actor, pharmacyID uuid.UUID, status model.PrescriptionStatus) ([]*model.Prescription, error) {
	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityPrescription,
		PharmacyID: &pharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	prescriptions, err := s.prescriptions.ListByPharmacy(ctx, pharmacyID, status)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return prescriptions, nil
}

// Transition moves a prescription through review. The ready edge queues
// the patient's pickup SMS.
func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, target model.PrescriptionStatus) (*model.Prescription, error) {
	prescription, effects, err := s.engine.TransitionPrescription(ctx, actor, id, target)
	if err != nil {
		return nil, err
	}
	s.enqueuer.Enqueue(ctx, effects)
	return prescription, nil
}
