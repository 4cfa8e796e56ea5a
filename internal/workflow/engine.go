package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/metrics"
)

// Engine owns every status transition in the system. Each transition is
// validated against the entity's graph, authorized against the actor,
// then applied as a single conditional update keyed on the expected
// current status. Whoever loses a race sees Conflict, never a silent
// overwrite.
//
// Transitions that trigger follow-on work return it as []SideEffect
// values; the engine itself never sends an SMS or touches a second
// entity inline.
type Engine struct {
	reservations  repository.ReservationRepository
	appointments  repository.AppointmentRepository
	prescriptions repository.PrescriptionRepository
	payments      repository.PaymentRepository
	deliveries    repository.DeliveryRepository
	users         repository.UserRepository
	pharmacies    repository.PharmacyRepository
	guard         *authz.Guard
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// NewEngine creates a workflow engine. metrics may be nil in tests.
func NewEngine(
	reservations repository.ReservationRepository,
	appointments repository.AppointmentRepository,
	prescriptions repository.PrescriptionRepository,
	payments repository.PaymentRepository,
	deliveries repository.DeliveryRepository,
	users repository.UserRepository,
	pharmacies repository.PharmacyRepository,
	guard *authz.Guard,
	log *logger.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		reservations:  reservations,
		appointments:  appointments,
		prescriptions: prescriptions,
		payments:      payments,
		deliveries:    deliveries,
		users:         users,
		pharmacies:    pharmacies,
		guard:         guard,
		logger:        log,
		metrics:       m,
	}
}

func (e *Engine) recordApplied(entity model.EntityType, target string) {
	if e.metrics != nil {
		e.metrics.TransitionsApplied.WithLabelValues(string(entity), target).Inc()
	}
}

func (e *Engine) recordRejected(entity model.EntityType, reason string) {
	if e.metrics != nil {
		e.metrics.TransitionsRejected.WithLabelValues(string(entity), reason).Inc()
	}
}

// checkEdge validates the transition graph edge and the actor's role
// against it. Graph validity is checked before role so that a bogus
// target status reads as InvalidTransition, not Denied.
func (e *Engine) checkEdge(entity model.EntityType, from, to string, actor model.Actor) error {
	if !CanTransition(entity, from, to) {
		e.recordRejected(entity, "invalid_transition")
		return apperrors.InvalidTransition(string(entity), from, to)
	}
	if !EdgeAllowsRole(entity, from, to, actor.Role) {
		e.recordRejected(entity, "denied")
		return apperrors.Denied(fmt.Sprintf("role %s may not move a %s from %s to %s", actor.Role, entity, from, to))
	}
	return nil
}

func (e *Engine) authorize(actor model.Actor, target authz.Target) error {
	decision := e.guard.Authorize(actor, authz.OpTransition, target)
	if !decision.Allowed {
		e.recordRejected(target.Entity, "denied")
		return apperrors.Denied(decision.Reason)
	}
	return nil
}

// mapStoreErr translates repository sentinels into the error taxonomy.
// ErrStaleStatus means our conditional update lost a race: the caller
// must re-fetch before retrying.
func mapStoreErr(resource string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, err)
	case errors.Is(err, repository.ErrStaleStatus):
		return apperrors.Conflict(fmt.Sprintf("%s status changed concurrently", resource))
	default:
		return apperrors.StoreUnavailable(err)
	}
}

// TransitionReservation moves a reservation along its graph. The
// pending→paid edge is reserved for the payment cascade; admins confirm
// paid reservations, patients and admins cancel pending ones.
func (e *Engine) TransitionReservation(ctx context.Context, actor model.Actor, id uuid.UUID, target model.ReservationStatus) (*model.Reservation, []SideEffect, error) {
	res, err := e.reservations.Get(ctx, id)
	if err != nil {
		return nil, nil, mapStoreErr("reservation", err)
	}

	if err := e.checkEdge(model.EntityReservation, string(res.Status), string(target), actor); err != nil {
		return nil, nil, err
	}
	if err := e.authorize(actor, authz.Target{
		Entity:     model.EntityReservation,
		PharmacyID: &res.PharmacyID,
		PatientID:  &res.PatientID,
	}); err != nil {
		return nil, nil, err
	}

	if err := e.reservations.UpdateStatus(ctx, id, res.Status, target); err != nil {
		return nil, nil, mapStoreErr("reservation", err)
	}

	from := res.Status
	res.Status = target
	e.recordApplied(model.EntityReservation, string(target))
	e.logger.Info("reservation transitioned", "reservation_id", id.String(), "from", string(from), "to", string(target))

	return res, nil, nil
}

// TransitionAppointment confirms or cancels a pending appointment.
func (e *Engine) TransitionAppointment(ctx context.Context, actor model.Actor, id uuid.UUID, target model.AppointmentStatus) (*model.Appointment, []SideEffect, error) {
	apt, err := e.appointments.Get(ctx, id)
	if err != nil {
		return nil, nil, mapStoreErr("appointment", err)
	}

	if err := e.checkEdge(model.EntityAppointment, string(apt.Status), string(target), actor); err != nil {
		return nil, nil, err
	}
	if err := e.authorize(actor, authz.Target{
		Entity:     model.EntityAppointment,
		PharmacyID: &apt.PharmacyID,
		PatientID:  &apt.PatientID,
	}); err != nil {
		return nil, nil, err
	}

	if err := e.appointments.UpdateStatus(ctx, id, apt.Status, target); err != nil {
		return nil, nil, mapStoreErr("appointment", err)
	}

	apt.Status = target
	e.recordApplied(model.EntityAppointment, string(target))
	e.logger.Info("appointment transitioned", "appointment_id", id.String(), "to", string(target))

	return apt, nil, nil
}

// TransitionPrescription moves a prescription through review. Marking
// it ready emits an SMS notification naming the pharmacy.
func (e *Engine) TransitionPrescription(ctx context.Context, actor model.Actor, id uuid.UUID, target model.PrescriptionStatus) (*model.Prescription, []SideEffect, error) {
	pre, err := e.prescriptions.Get(ctx, id)
	if err != nil {
		return nil, nil, mapStoreErr("prescription", err)
	}

	if err := e.checkEdge(model.EntityPrescription, string(pre.Status), string(target), actor); err != nil {
		return nil, nil, err
	}
	if err := e.authorize(actor, authz.Target{
		Entity:     model.EntityPrescription,
		PharmacyID: &pre.PharmacyID,
		PatientID:  &pre.PatientID,
	}); err != nil {
		return nil, nil, err
	}

	if err := e.prescriptions.UpdateStatus(ctx, id, pre.Status, target); err != nil {
		return nil, nil, mapStoreErr("prescription", err)
	}

	pre.Status = target
	e.recordApplied(model.EntityPrescription, string(target))
	e.logger.Info("prescription transitioned", "prescription_id", id.String(), "to", string(target))

	var effects []SideEffect
	if target == model.PrescriptionStatusReady {
		if effect, ok := e.prescriptionReadyNotify(ctx, pre); ok {
			effects = append(effects, effect)
		}
	}
	return pre, effects, nil
}

// prescriptionReadyNotify builds the ready SMS. Lookup failures are
// logged and swallowed: a missing phone number never blocks the
// transition that already committed.
func (e *Engine) prescriptionReadyNotify(ctx context.Context, pre *model.Prescription) (SideEffect, bool) {
	patient, err := e.users.Get(ctx, pre.PatientID)
	if err != nil {
		e.logger.Error(err, "failed to load patient for prescription notification", "prescription_id", pre.ID.String())
		return SideEffect{}, false
	}
	pharmacy, err := e.pharmacies.Get(ctx, pre.PharmacyID)
	if err != nil {
		e.logger.Error(err, "failed to load pharmacy for prescription notification", "prescription_id", pre.ID.String())
		return SideEffect{}, false
	}
	msg := fmt.Sprintf("Votre ordonnance est prête à la pharmacie %s.", pharmacy.Name)
	return NotifyEffect(patient.Phone, msg), true
}

// TransitionDelivery advances an assigned delivery. The pending→accepted
// edge assigns a courier and goes through AcceptDelivery instead.
func (e *Engine) TransitionDelivery(ctx context.Context, actor model.Actor, id uuid.UUID, target model.DeliveryStatus) (*model.Delivery, []SideEffect, error) {
	if target == model.DeliveryStatusAccepted {
		del, err := e.AcceptDelivery(ctx, actor, id)
		return del, nil, err
	}

	del, err := e.deliveries.Get(ctx, id)
	if err != nil {
		return nil, nil, mapStoreErr("delivery", err)
	}

	if err := e.checkEdge(model.EntityDelivery, string(del.Status), string(target), actor); err != nil {
		return nil, nil, err
	}
	if err := e.authorize(actor, authz.Target{
		Entity:     model.EntityDelivery,
		CourierID:  del.CourierID,
		Unassigned: del.CourierID == nil,
	}); err != nil {
		return nil, nil, err
	}

	if del.CourierID == nil {
		e.recordRejected(model.EntityDelivery, "invalid_transition")
		return nil, nil, apperrors.InvalidTransition(string(model.EntityDelivery), string(del.Status), string(target))
	}

	// The update predicate re-checks the assignment, so a super_admin
	// drives the transition on behalf of the assigned courier.
	courierID := actor.UserID
	if actor.IsSuperAdmin() {
		courierID = *del.CourierID
	}
	if err := e.deliveries.UpdateStatus(ctx, id, courierID, del.Status, target); err != nil {
		return nil, nil, mapStoreErr("delivery", err)
	}

	del.Status = target
	e.recordApplied(model.EntityDelivery, string(target))
	e.logger.Info("delivery transitioned", "delivery_id", id.String(), "to", string(target))

	return del, nil, nil
}

// AcceptDelivery assigns the calling courier to a pending, unassigned
// delivery. Assignment and status change happen in one conditional
// update: of N concurrent accepts exactly one succeeds and the rest get
// Conflict.
func (e *Engine) AcceptDelivery(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Delivery, error) {
	del, err := e.deliveries.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("delivery", err)
	}

	if err := e.checkEdge(model.EntityDelivery, string(del.Status), string(model.DeliveryStatusAccepted), actor); err != nil {
		return nil, err
	}
	if actor.Role != model.RoleCourier {
		e.recordRejected(model.EntityDelivery, "denied")
		return nil, apperrors.Denied("only couriers accept deliveries")
	}
	if err := e.authorize(actor, authz.Target{
		Entity:     model.EntityDelivery,
		CourierID:  del.CourierID,
		Unassigned: del.CourierID == nil && del.Status == model.DeliveryStatusPending,
	}); err != nil {
		return nil, err
	}

	if err := e.deliveries.Accept(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			e.recordRejected(model.EntityDelivery, "conflict")
			return nil, apperrors.Conflict("delivery already taken by another courier")
		}
		return nil, mapStoreErr("delivery", err)
	}

	courierID := actor.UserID
	del.CourierID = &courierID
	del.Status = model.DeliveryStatusAccepted
	e.recordApplied(model.EntityDelivery, string(model.DeliveryStatusAccepted))
	e.logger.Info("delivery accepted", "delivery_id", id.String(), "courier_id", courierID.String())

	return del, nil
}

// HandlePaymentWebhook applies a gateway outcome to the payment keyed
// by transaction id. Re-delivery of the same outcome is a no-op with no
// effects; a conflicting outcome for a settled payment is Conflict.
// Approval cascades the reservation to paid and queues a confirmation
// SMS.
func (e *Engine) HandlePaymentWebhook(ctx context.Context, transactionID string, outcome model.PaymentStatus) (*model.Payment, []SideEffect, error) {
	payment, err := e.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, nil, mapStoreErr("payment", err)
	}

	if payment.Status == outcome {
		e.logger.Info("duplicate payment webhook ignored", "transaction_id", transactionID, "status", string(outcome))
		return payment, nil, nil
	}
	if payment.Status != model.PaymentStatusPending {
		e.recordRejected(model.EntityPayment, "conflict")
		return nil, nil, apperrors.Conflict(fmt.Sprintf("payment already settled as %s", payment.Status))
	}
	if !CanTransition(model.EntityPayment, string(payment.Status), string(outcome)) {
		e.recordRejected(model.EntityPayment, "invalid_transition")
		return nil, nil, apperrors.InvalidTransition(string(model.EntityPayment), string(payment.Status), string(outcome))
	}

	if err := e.payments.UpdateStatusByTransactionID(ctx, transactionID, model.PaymentStatusPending, outcome); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Lost a race against a concurrent webhook. If it landed
			// on the same outcome this delivery is still a no-op.
			current, getErr := e.payments.GetByTransactionID(ctx, transactionID)
			if getErr == nil && current.Status == outcome {
				return current, nil, nil
			}
			e.recordRejected(model.EntityPayment, "conflict")
			return nil, nil, apperrors.Conflict("payment settled concurrently with a different outcome")
		}
		return nil, nil, mapStoreErr("payment", err)
	}

	payment.Status = outcome
	e.recordApplied(model.EntityPayment, string(outcome))
	e.logger.Info("payment settled", "transaction_id", transactionID, "status", string(outcome))

	if outcome != model.PaymentStatusApproved {
		return payment, nil, nil
	}

	effects := []SideEffect{
		CascadeEffect(model.EntityReservation, payment.ReservationID,
			string(model.ReservationStatusPending), string(model.ReservationStatusPaid)),
		NotifyEffect(payment.Phone,
			fmt.Sprintf("Paiement de %d FCFA confirmé. Votre réservation est en attente de confirmation par la pharmacie.", payment.Amount)),
	}
	return payment, effects, nil
}

// ApplyCascade executes a queued follow-on transition as the system
// actor. It is called by the outbox worker, never by request handlers,
// so no guard check applies. A stale cascade (entity already moved on)
// reports Conflict and is not retried.
func (e *Engine) ApplyCascade(ctx context.Context, req CascadeRequest) error {
	switch req.Entity {
	case model.EntityReservation:
		err := e.reservations.UpdateStatus(ctx, req.EntityID,
			model.ReservationStatus(req.From), model.ReservationStatus(req.To))
		if err != nil {
			return mapStoreErr("reservation", err)
		}
		e.recordApplied(model.EntityReservation, req.To)
		e.logger.Info("cascade applied", "entity", string(req.Entity), "entity_id", req.EntityID.String(), "to", req.To)
		return nil
	default:
		return apperrors.BadRequest(fmt.Sprintf("unsupported cascade entity %s", req.Entity), nil)
	}
}
