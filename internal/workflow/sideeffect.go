package workflow

import (
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
)

type SideEffectType string

const (
	SideEffectNotify  SideEffectType = "notify"
	SideEffectCascade SideEffectType = "cascade"
)

// NotifyRequest asks the worker to send an SMS to a phone number.
type NotifyRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// CascadeRequest asks the worker to apply a follow-on transition to
// another entity, e.g. payment approval moving the reservation to paid.
type CascadeRequest struct {
	Entity   model.EntityType `json:"entity"`
	EntityID uuid.UUID        `json:"entity_id"`
	From     string           `json:"from"`
	To       string           `json:"to"`
}

// SideEffect is a deferred action produced by a transition. It is a
// plain value: the engine emits it, the service layer enqueues it to
// the outbox, and the worker executes it. A side-effect failure never
// rolls back the transition that produced it.
type SideEffect struct {
	Type    SideEffectType  `json:"type"`
	Notify  *NotifyRequest  `json:"notify,omitempty"`
	Cascade *CascadeRequest `json:"cascade,omitempty"`
}

func NotifyEffect(phone, message string) SideEffect {
	return SideEffect{
		Type:   SideEffectNotify,
		Notify: &NotifyRequest{Phone: phone, Message: message},
	}
}

func CascadeEffect(entity model.EntityType, entityID uuid.UUID, from, to string) SideEffect {
	return SideEffect{
		Type: SideEffectCascade,
		Cascade: &CascadeRequest{
			Entity:   entity,
			EntityID: entityID,
			From:     from,
			To:       to,
		},
	}
}
