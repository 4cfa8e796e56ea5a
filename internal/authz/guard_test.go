package authz_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
)

func TestAuthorize(t *testing.T) {
	guard := authz.NewGuard()

	pharmacyA := uuid.New()
	pharmacyB := uuid.New()
	patientID := uuid.New()
	courierID := uuid.New()

	superAdmin := model.Actor{UserID: uuid.New(), Role: model.RoleSuperAdmin}
	adminA := model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin, PharmacyID: &pharmacyA}
	adminNoPharmacy := model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin}
	patient := model.Actor{UserID: patientID, Role: model.RolePatient}
	courier := model.Actor{UserID: courierID, Role: model.RoleCourier}

	tests := []struct {
		name    string
		actor   model.Actor
		op      authz.Operation
		target  authz.Target
		allowed bool
	}{
		{
			name:    "super admin passes everything",
			actor:   superAdmin,
			op:      authz.OpTransition,
			target:  authz.Target{Entity: model.EntityReservation, PharmacyID: &pharmacyB},
			allowed: true,
		},
		{
			name:    "admin operates on own pharmacy",
			actor:   adminA,
			op:      authz.OpTransition,
			target:  authz.Target{Entity: model.EntityPrescription, PharmacyID: &pharmacyA, PatientID: &patientID},
			allowed: true,
		},
		{
			name:    "admin denied on foreign pharmacy",
			actor:   adminA,
			op:      authz.OpTransition,
			target:  authz.Target{Entity: model.EntityPrescription, PharmacyID: &pharmacyB, PatientID: &patientID},
			allowed: false,
		},
		{
			name:    "admin without affiliation denied",
			actor:   adminNoPharmacy,
			op:      authz.OpRead,
			target:  authz.Target{Entity: model.EntityReservation, PharmacyID: &pharmacyA},
			allowed: false,
		},
		{
			name:    "patient creates own reservation",
			actor:   patient,
			op:      authz.OpCreate,
			target:  authz.Target{Entity: model.EntityReservation, PharmacyID: &pharmacyA, PatientID: &patientID},
			allowed: true,
		},
		{
			name:    "patient may not create a pharmacy",
			actor:   patient,
			op:      authz.OpCreate,
			target:  authz.Target{Entity: model.EntityPharmacy},
			allowed: false,
		},
		{
			name:    "patient reads own record",
			actor:   patient,
			op:      authz.OpRead,
			target:  authz.Target{Entity: model.EntityAppointment, PharmacyID: &pharmacyA, PatientID: &patientID},
			allowed: true,
		},
		{
			name:  "patient denied on another patient's record",
			actor: patient,
			op:    authz.OpRead,
			target: authz.Target{
				Entity:    model.EntityAppointment,
				PatientID: func() *uuid.UUID { id := uuid.New(); return &id }(),
			},
			allowed: false,
		},
		{
			name:    "patient transitions own record",
			actor:   patient,
			op:      authz.OpTransition,
			target:  authz.Target{Entity: model.EntityReservation, PharmacyID: &pharmacyA, PatientID: &patientID},
			allowed: true,
		},
		{
			name:    "courier reads unassigned delivery",
			actor:   courier,
			op:      authz.OpRead,
			target:  authz.Target{Entity: model.EntityDelivery, Unassigned: true},
			allowed: true,
		},
		{
			name:    "courier transitions own delivery",
			actor:   courier,
			op:      authz.OpTransition,
			target:  authz.Target{Entity: model.EntityDelivery, CourierID: &courierID},
			allowed: true,
		},
		{
			name:  "courier denied on another courier's delivery",
			actor: courier,
			op:    authz.OpTransition,
			target: authz.Target{
				Entity:    model.EntityDelivery,
				CourierID: func() *uuid.UUID { id := uuid.New(); return &id }(),
			},
			allowed: false,
		},
		{
			name:    "courier denied outside deliveries",
			actor:   courier,
			op:      authz.OpRead,
			target:  authz.Target{Entity: model.EntityReservation, PatientID: &patientID},
			allowed: false,
		},
		{
			name:    "unknown role denied",
			actor:   model.Actor{UserID: uuid.New(), Role: model.Role("intern")},
			op:      authz.OpRead,
			target:  authz.Target{Entity: model.EntityReservation, PatientID: &patientID},
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := guard.Authorize(tt.actor, tt.op, tt.target)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, decision.Reason, "denials must carry a reason")
			}
		})
	}
}
