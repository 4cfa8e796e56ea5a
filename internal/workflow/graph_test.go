package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/workflow"
)

func TestTransitionGraphEdges(t *testing.T) {
	edges := map[model.EntityType][][2]string{
		model.EntityReservation: {
			{"pending", "paid"},
			{"paid", "confirmed"},
			{"pending", "cancelled"},
		},
		model.EntityAppointment: {
			{"pending", "confirmed"},
			{"pending", "cancelled"},
		},
		model.EntityPrescription: {
			{"pending", "ready"},
			{"pending", "rejected"},
			{"ready", "picked_up"},
		},
		model.EntityPayment: {
			{"pending", "approved"},
			{"pending", "declined"},
		},
		model.EntityDelivery: {
			{"pending", "accepted"},
			{"accepted", "picked_up"},
			{"picked_up", "delivered"},
		},
	}

	for entity, allowed := range edges {
		allowedSet := make(map[[2]string]bool, len(allowed))
		for _, e := range allowed {
			allowedSet[e] = true
			assert.True(t, workflow.CanTransition(entity, e[0], e[1]),
				"%s %s->%s must be an edge", entity, e[0], e[1])
		}

		// Every other status pair, including self-loops and reversals,
		// must be rejected.
		statuses := workflow.Statuses(entity)
		for _, from := range statuses {
			for _, to := range statuses {
				if allowedSet[[2]string{from, to}] {
					continue
				}
				assert.False(t, workflow.CanTransition(entity, from, to),
					"%s %s->%s must not be an edge", entity, from, to)
			}
		}
	}
}

func TestUnknownStatusesAreNotEdges(t *testing.T) {
	assert.False(t, workflow.CanTransition(model.EntityReservation, "pending", "shipped"))
	assert.False(t, workflow.CanTransition(model.EntityReservation, "Prête", "confirmed"))
	assert.False(t, workflow.CanTransition(model.EntityType("order"), "pending", "paid"))
}

func TestEdgeRoleTable(t *testing.T) {
	// super_admin may drive every edge.
	assert.True(t, workflow.EdgeAllowsRole(model.EntityPayment, "pending", "approved", model.RoleSuperAdmin))
	assert.True(t, workflow.EdgeAllowsRole(model.EntityReservation, "pending", "paid", model.RoleSuperAdmin))

	// Payment settlement and the reservation paid edge are system-only.
	assert.False(t, workflow.EdgeAllowsRole(model.EntityPayment, "pending", "approved", model.RolePharmacyAdmin))
	assert.False(t, workflow.EdgeAllowsRole(model.EntityReservation, "pending", "paid", model.RolePatient))
	assert.False(t, workflow.EdgeAllowsRole(model.EntityReservation, "pending", "paid", model.RolePharmacyAdmin))

	// Confirmations belong to pharmacy admins, cancellations also to
	// the owning patient.
	assert.True(t, workflow.EdgeAllowsRole(model.EntityReservation, "paid", "confirmed", model.RolePharmacyAdmin))
	assert.False(t, workflow.EdgeAllowsRole(model.EntityReservation, "paid", "confirmed", model.RolePatient))
	assert.True(t, workflow.EdgeAllowsRole(model.EntityReservation, "pending", "cancelled", model.RolePatient))
	assert.True(t, workflow.EdgeAllowsRole(model.EntityAppointment, "pending", "cancelled", model.RolePatient))

	// Delivery edges belong to couriers.
	assert.True(t, workflow.EdgeAllowsRole(model.EntityDelivery, "pending", "accepted", model.RoleCourier))
	assert.False(t, workflow.EdgeAllowsRole(model.EntityDelivery, "pending", "accepted", model.RolePatient))
	assert.False(t, workflow.EdgeAllowsRole(model.EntityDelivery, "accepted", "picked_up", model.RolePharmacyAdmin))
}
