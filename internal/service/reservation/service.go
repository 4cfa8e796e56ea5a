package reservation

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
	"github.com/medigo/pharmacy-api/pkg/logger"
)

type Service struct {
	reservations repository.ReservationRepository
	stocks       repository.StockRepository
	engine       *workflow.Engine
	guard        *authz.Guard
	enqueuer     *outbox.Enqueuer
	logger       *logger.Logger
}

func NewService(
	reservations repository.ReservationRepository,
	stocks repository.StockRepository,
	engine *workflow.Engine,
	guard *authz.Guard,
	enqueuer *outbox.Enqueuer,
	log *logger.Logger,
) *Service {
	return &Service{
		reservations: reservations,
		stocks:       stocks,
		engine:       engine,
		guard:        guard,
		enqueuer:     enqueuer,
		logger:       log,
	}
}

// Create opens a pending reservation for the acting patient. The hold
// is soft: stock is only decremented when the pharmacy confirms.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateReservationRequest) (*model.Reservation, error) {
	patientID := actor.UserID
	decision := s.guard.Authorize(actor, authz.OpCreate, authz.Target{
		Entity:     model.EntityReservation,
		PharmacyID: &req.PharmacyID,
		PatientID:  &patientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	stock, err := s.stocks.Get(ctx, req.PharmacyID, req.MedicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("stock", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	if stock.Quantity < req.Quantity {
		return nil, apperrors.Conflict("insufficient stock at this pharmacy")
	}

	reservation := &model.Reservation{
		PatientID:    patientID,
		PharmacyID:   req.PharmacyID,
		MedicationID: req.MedicationID,
		Quantity:     req.Quantity,
		Status:       model.ReservationStatusPending,
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return reservation, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Reservation, error) {
	reservation, err := s.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityReservation,
		PharmacyID: &reservation.PharmacyID,
		PatientID:  &reservation.PatientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	return reservation, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Reservation, error) {
	reservations, err := s.reservations.ListByPatient(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return reservations, nil
}

func (s *Service) ListForPharmacy(ctx context.Context, actor model.Actor, pharmacyID uuid.UUID, status model.ReservationStatus) ([]*model.Reservation, error) {
	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityReservation,
		PharmacyID: &pharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	reservations, err := s.reservations.ListByPharmacy(ctx, pharmacyID, status)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return reservations, nil
}

// Transition applies a status change through the workflow engine.
// Confirmation additionally commits the stock hold: the decrement is
// conditional on quantity, logged and surfaced to the pharmacy if the
// shelf count drifted below the reservation.
func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, target model.ReservationStatus) (*model.Reservation, error) {
	reservation, effects, err := s.engine.TransitionReservation(ctx, actor, id, target)
	if err != nil {
		return nil, err
	}
	s.enqueuer.Enqueue(ctx, effects)

	if target == model.ReservationStatusConfirmed {
		err := s.stocks.Decrement(ctx, reservation.PharmacyID, reservation.MedicationID, reservation.Quantity)
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				s.logger.Warn("confirmed reservation exceeds shelf stock",
					"reservation_id", id.String(), "quantity", reservation.Quantity)
			} else {
				s.logger.Error(err, "failed to decrement stock", "reservation_id", id.String())
			}
		}
	}
	return reservation, nil
}
