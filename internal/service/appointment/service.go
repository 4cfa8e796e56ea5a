package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/service/outbox"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

type Service struct {
	appointments repository.AppointmentRepository
	engine       *workflow.Engine
	guard        *authz.Guard
	enqueuer     *outbox.Enqueuer
}

func NewService(appointments repository.AppointmentRepository, engine *workflow.Engine, guard *authz.Guard, enqueuer *outbox.Enqueuer) *Service {
	return &Service{
		appointments: appointments,
		engine:       engine,
		guard:        guard,
		enqueuer:     enqueuer,
	}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patientID := actor.UserID
	decision := s.guard.Authorize(actor, authz.OpCreate, authz.Target{
		Entity:     model.EntityAppointment,
		PharmacyID: &req.PharmacyID,
		PatientID:  &patientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	if req.AppointmentDate.Before(time.Now()) {
		return nil, apperrors.BadRequest("appointment date is in the past", nil)
	}

	appointment := &model.Appointment{
		PatientID:       patientID,
		PharmacyID:      req.PharmacyID,
		AppointmentDate: req.AppointmentDate,
		Reason:          req.Reason,
		Status:          model.AppointmentStatusPending,
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return appointment, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityAppointment,
		PharmacyID: &appointment.PharmacyID,
		PatientID:  &appointment.PatientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	return appointment, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	appointments, err := s.appointments.ListByPatient(ctx, actor.UserID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return appointments, nil
}

func (s *Service) ListForPharmacy(ctx context.Context, actor model.Actor, pharmacyID uuid.UUID) ([]*model.Appointment, error) {
	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityAppointment,
		PharmacyID: &pharmacyID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	appointments, err := s.appointments.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return appointments, nil
}

func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, target model.AppointmentStatus) (*model.Appointment, error) {
	appointment, effects, err := s.engine.TransitionAppointment(ctx, actor, id, target)
	if err != nil {
		return nil, err
	}
	s.enqueuer.Enqueue(ctx, effects)
	return appointment, nil
}
