package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/service/outbox"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
)

type Service struct {
	payments     repository.PaymentRepository
	reservations repository.ReservationRepository
	engine       *workflow.Engine
	guard        *authz.Guard
	enqueuer     *outbox.Enqueuer
}

func NewService(
	payments repository.PaymentRepository,
	reservations repository.ReservationRepository,
	engine *workflow.Engine,
	guard *authz.Guard,
	enqueuer *outbox.Enqueuer,
) *Service {
	return &Service{
		payments:     payments,
		reservations: reservations,
		engine:       engine,
		guard:        guard,
		enqueuer:     enqueuer,
	}
}

// Initialize opens a mobile-money checkout against a pending
// reservation. The returned transaction id is what the gateway echoes
// back on its webhook.
func (s *Service) Initialize(ctx context.Context, actor model.Actor, req *model.InitializePaymentRequest) (*model.CheckoutReference, error) {
	reservation, err := s.reservations.Get(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	decision := s.guard.Authorize(actor, authz.OpCreate, authz.Target{
		Entity:     model.EntityPayment,
		PharmacyID: &reservation.PharmacyID,
		PatientID:  &reservation.PatientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	if reservation.Status != model.ReservationStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("reservation is %s, only pending reservations are payable", reservation.Status))
	}

	payment := &model.Payment{
		ReservationID:         req.ReservationID,
		Amount:                req.Amount,
		Method:                req.Method,
		Status:                model.PaymentStatusPending,
		Phone:                 req.Phone,
		ExternalTransactionID: fmt.Sprintf("MG-%s", uuid.NewString()),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &model.CheckoutReference{
		Payment:       payment,
		TransactionID: payment.ExternalTransactionID,
	}, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("payment", err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	reservation, err := s.reservations.Get(ctx, payment.ReservationID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	decision := s.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityPayment,
		PharmacyID: &reservation.PharmacyID,
		PatientID:  &reservation.PatientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}
	return payment, nil
}

// HandleWebhook applies the gateway outcome and queues whatever the
// settlement produced: on approval, the reservation cascade and the
// confirmation SMS.
func (s *Service) HandleWebhook(ctx context.Context, req *model.PaymentWebhookRequest) (*model.Payment, error) {
	payment, effects, err := s.engine.HandlePaymentWebhook(ctx, req.TransactionID, req.Status)
	if err != nil {
		return nil, err
	}
	s.enqueuer.Enqueue(ctx, effects)
	return payment, nil
}
