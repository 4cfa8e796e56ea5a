package authz

import (
	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
)

// Operation is the kind of access being requested on a target entity
type Operation string

const (
	OpCreate     Operation = "create"
	OpRead       Operation = "read"
	OpUpdate     Operation = "update"
	OpTransition Operation = "transition"
)

// Target describes the entity an operation acts on: its type and the
// ownership fields the rules key on. Unowned fields stay nil.
type Target struct {
	Entity     model.EntityType
	PharmacyID *uuid.UUID
	PatientID  *uuid.UUID
	CourierID  *uuid.UUID
	// Unassigned marks a delivery still open for acceptance
	Unassigned bool
}

// Decision is the guard's verdict. Deny is a first-class result, not an
// error: callers translate it into an access-denied response.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Guard evaluates role- and ownership-based access rules. It is pure:
// no store reads, no side effects.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Authorize decides whether the actor may perform op on the target.
func (g *Guard) Authorize(actor model.Actor, op Operation, target Target) Decision {
	switch actor.Role {
	case model.RoleSuperAdmin:
		return Allow()
	case model.RolePharmacyAdmin:
		return g.authorizePharmacyAdmin(actor, target)
	case model.RolePatient:
		return g.authorizePatient(actor, op, target)
	case model.RoleCourier:
		return g.authorizeCourier(actor, op, target)
	default:
		return Deny("unknown role")
	}
}

func (g *Guard) authorizePharmacyAdmin(actor model.Actor, target Target) Decision {
	if actor.PharmacyID == nil {
		return Deny("pharmacy admin has no pharmacy affiliation")
	}
	if target.PharmacyID == nil {
		return Deny("target has no pharmacy scope")
	}
	if *target.PharmacyID != *actor.PharmacyID {
		return Deny("foreign pharmacy")
	}
	return Allow()
}

func (g *Guard) authorizePatient(actor model.Actor, op Operation, target Target) Decision {
	switch op {
	case OpCreate:
		switch target.Entity {
		case model.EntityReservation, model.EntityAppointment,
			model.EntityPrescription, model.EntityPayment, model.EntityMessage:
			if target.PatientID != nil && *target.PatientID == actor.UserID {
				return Allow()
			}
			return Deny("patients may only create their own records")
		default:
			return Deny("patients may not create this entity")
		}
	case OpRead:
		if target.PatientID != nil && *target.PatientID == actor.UserID {
			return Allow()
		}
		return Deny("not the owning patient")
	case OpTransition:
		// Patients may only cancel their own pending records; the
		// per-edge role table in the workflow engine narrows this
		// further. Admin transitions are never theirs.
		if target.PatientID != nil && *target.PatientID == actor.UserID {
			return Allow()
		}
		return Deny("transition reserved for pharmacy staff")
	default:
		return Deny("operation not available to patients")
	}
}

func (g *Guard) authorizeCourier(actor model.Actor, op Operation, target Target) Decision {
	if target.Entity != model.EntityDelivery {
		return Deny("couriers only operate on deliveries")
	}

	switch op {
	case OpRead:
		if target.Unassigned {
			return Allow()
		}
		if target.CourierID != nil && *target.CourierID == actor.UserID {
			return Allow()
		}
		return Deny("delivery assigned to another courier")
	case OpTransition, OpUpdate:
		if target.Unassigned {
			return Allow()
		}
		if target.CourierID != nil && *target.CourierID == actor.UserID {
			return Allow()
		}
		return Deny("delivery assigned to another courier")
	default:
		return Deny("operation not available to couriers")
	}
}
