package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/messaging"
	"github.com/medigo/pharmacy-api/pkg/metrics"
)

// EventTypeMessage is the broker payload type for chat messages
const EventTypeMessage = "chat.message"

// Relay is the realtime chat path between a patient and a pharmacy.
// Every message is persisted before it is broadcast: history is the
// source of truth and a dropped broadcast only costs liveness, the
// recipient catches up from history on reconnect.
type Relay struct {
	messages repository.MessageRepository
	guard    *authz.Guard
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewRelay(messages repository.MessageRepository, guard *authz.Guard, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		messages: messages,
		guard:    guard,
		broker:   broker,
		logger:   log,
		metrics:  m,
	}
}

// PatientRoom is the channel a patient subscribes to for incoming
// pharmacy messages.
func PatientRoom(userID uuid.UUID) string {
	return fmt.Sprintf("user_%s", userID)
}

// PharmacyRoom is the channel a pharmacy dashboard subscribes to for
// incoming patient messages.
func PharmacyRoom(pharmacyID uuid.UUID) string {
	return fmt.Sprintf("pharmacy_%s", pharmacyID)
}

// Send persists the message, then broadcasts it to the recipient's
// room. Routing never guesses: the recipient is named explicitly on the
// message, and the sender's role fixes the direction.
func (r *Relay) Send(ctx context.Context, actor model.Actor, req *model.SendMessageRequest) (*model.Message, error) {
	msg := &model.Message{
		PharmacyID:  req.PharmacyID,
		SenderID:    actor.UserID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}

	switch actor.Role {
	case model.RolePatient:
		msg.IsFromPharmacy = false
		senderID := actor.UserID
		decision := r.guard.Authorize(actor, authz.OpCreate, authz.Target{
			Entity:    model.EntityMessage,
			PatientID: &senderID,
		})
		if !decision.Allowed {
			return nil, apperrors.Denied(decision.Reason)
		}
	case model.RolePharmacyAdmin, model.RoleSuperAdmin:
		msg.IsFromPharmacy = true
		decision := r.guard.Authorize(actor, authz.OpCreate, authz.Target{
			Entity:     model.EntityMessage,
			PharmacyID: &req.PharmacyID,
		})
		if !decision.Allowed {
			return nil, apperrors.Denied(decision.Reason)
		}
	default:
		return nil, apperrors.Denied("role may not send chat messages")
	}

	if err := r.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	room := PharmacyRoom(msg.PharmacyID)
	if msg.IsFromPharmacy {
		room = PatientRoom(msg.RecipientID)
	}

	payload := messaging.Message{Type: EventTypeMessage, Payload: msg}
	if err := r.broker.Publish(ctx, room, payload); err != nil {
		// The message is durable; the subscriber recovers it from
		// history on the next fetch.
		if r.metrics != nil {
			r.metrics.BroadcastFailures.Inc()
		}
		r.logger.Error(err, "chat broadcast failed", "room", room, "message_id", msg.ID.String())
		return msg, nil
	}

	if r.metrics != nil {
		r.metrics.MessagesPublished.Inc()
	}
	return msg, nil
}

// History returns the conversation between a patient and a pharmacy in
// chronological order.
func (r *Relay) History(ctx context.Context, actor model.Actor, pharmacyID, patientID uuid.UUID, limit int) ([]*model.Message, error) {
	decision := r.guard.Authorize(actor, authz.OpRead, authz.Target{
		Entity:     model.EntityMessage,
		PharmacyID: &pharmacyID,
		PatientID:  &patientID,
	})
	if !decision.Allowed {
		return nil, apperrors.Denied(decision.Reason)
	}

	messages, err := r.messages.ListConversation(ctx, pharmacyID, patientID, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return messages, nil
}

// Subscribe opens the actor's own room. Patients listen on their user
// room, pharmacy admins on their pharmacy's room.
func (r *Relay) Subscribe(ctx context.Context, actor model.Actor) (<-chan []byte, error) {
	switch actor.Role {
	case model.RolePatient, model.RoleCourier:
		return r.broker.Subscribe(ctx, PatientRoom(actor.UserID))
	case model.RolePharmacyAdmin:
		if actor.PharmacyID == nil {
			return nil, apperrors.Denied("pharmacy admin has no pharmacy affiliation")
		}
		return r.broker.Subscribe(ctx, PharmacyRoom(*actor.PharmacyID))
	default:
		return nil, apperrors.Denied("role has no chat room")
	}
}
