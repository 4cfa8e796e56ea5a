package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/messaging"
)

// EventTypePosition is the broker payload type for courier positions
const EventTypePosition = "delivery.position"

// TrackingRoom is the channel live position updates are published to
func TrackingRoom(deliveryID uuid.UUID) string {
	return fmt.Sprintf("delivery.track.%s", deliveryID)
}

type Service struct {
	deliveries   repository.DeliveryRepository
	reservations repository.ReservationRepository
	engine       *workflow.Engine
	guard        *authz.Guard
	broker       messaging.Broker
	logger       *logger.Logger
}

func NewService(
	deliveries repository.DeliveryRepository,
	reservations repository.ReservationRepository,
	engine *workflow.Engine,
	guard *authz.Guard,
	broker messaging.Broker,
	log *logger.Logger,
) *Service {
	return &Service{
		deliveries:   deliveries,
		reservations: reservations,
		engine:       engine,
		guard:        guard,
		broker:       broker,
		logger:       log,
	}
}

// Create opens a courier run for a confirmed reservation. The pharmacy
// fulfilling the reservation requests it.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateDeliveryRequest) (*model.Delivery, error) {
	reservation, err := s.reservations.Get(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	if actor.Role != model.RolePharmacyAdmin && !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("deliveries are requested by the fulfilling pharmacy")
	}
	decision := s.guard.Authorize(actor, authz.OpCreate, authz.Target{
		Entity:     model.EntityDelivery,
		PharmacyID: &reservation.PharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	if reservation.Status != model.ReservationStatusConfirmed {
		return nil, apperrors.Conflict("only confirmed reservations are deliverable")
	}

	delivery := &model.Delivery{
		ReservationID: req.ReservationID,
		Status:        model.DeliveryStatusPending,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return delivery, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Delivery, error) {
	delivery, err := s.deliveries.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("delivery", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	target := authz.Target{
		Entity:     model.EntityDelivery,
		CourierID:  delivery.CourierID,
		Unassigned: delivery.CourierID == nil,
	}
	if actor.Role == model.RolePatient || actor.Role == model.RolePharmacyAdmin {
		reservation, err := s.reservations.Get(ctx, delivery.ReservationID)
		if err != nil {
			return nil, apperrors.StoreUnavailable(err)
		}
		target.PharmacyID = &reservation.PharmacyID
		target.PatientID = &reservation.PatientID
	}
	decision := s.guard.Authorize(actor, authz.OpRead, target)
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	return delivery, nil
}

// ListOpen returns unassigned pending deliveries for couriers to claim
func (s *Service) ListOpen(ctx context.Context, actor model.Actor) ([]*model.Delivery, error) {
	if actor.Role != model.RoleCourier && !actor.IsSuperAdmin() {
		return nil, apperrors.Denied("the open delivery board is for couriers")
	}

	deliveries, err := s.deliveries.ListPending(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return deliveries, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Delivery, error) {
	if actor.Role != model.RoleCourier {
		return nil, apperrors.Denied("only couriers have delivery runs")
	}

	deliveries, err := s.deliveries.ListByCourier(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return deliveries, nil
}

// Accept claims an open delivery for the calling courier
func (s *Service) Accept(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Delivery, error) {
	return s.engine.AcceptDelivery(ctx, actor, id)
}

func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, target model.DeliveryStatus) (*model.Delivery, error) {
	delivery, _, err := s.engine.TransitionDelivery(ctx, actor, id, target)
	return delivery, err
}

// UpdatePosition stores the courier's position and broadcasts it to the
// delivery's tracking room. The broadcast is best-effort.
func (s *Service) UpdatePosition(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePositionRequest) error {
	if actor.Role != model.RoleCourier {
		return apperrors.Denied("only the assigned courier reports positions")
	}

	if err := s.deliveries.UpdatePosition(ctx, id, actor.UserID, req.Latitude, req.Longitude); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("delivery", err)
		}
		return apperrors.StoreUnavailable(err)
	}

	payload := messaging.Message{
		Type: EventTypePosition,
		Payload: map[string]interface{}{
			"delivery_id": id,
			"latitude":    req.Latitude,
			"longitude":   req.Longitude,
		},
	}
	if err := s.broker.Publish(ctx, TrackingRoom(id), payload); err != nil {
		s.logger.Error(err, "failed to broadcast courier position", "delivery_id", id.String())
	}
	return nil
}
