package workflow

import (
	"github.com/medigo/pharmacy-api/internal/model"
)

type edge struct {
	from string
	to   string
}

// edgeRule names the roles allowed to drive an edge. A nil role set
// means the edge is system-driven (webhook or cascade); super_admin is
// implicitly allowed on every edge.
type edgeRule struct {
	roles map[model.Role]bool
}

func roles(rs ...model.Role) edgeRule {
	set := make(map[model.Role]bool, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return edgeRule{roles: set}
}

func systemOnly() edgeRule {
	return edgeRule{}
}

// transitionGraphs is the single source of truth for every entity's
// status machine. A status pair absent from its entity's map is an
// invalid transition, full stop.
var transitionGraphs = map[model.EntityType]map[edge]edgeRule{
	model.EntityReservation: {
		{from: "pending", to: "paid"}:      systemOnly(),
		{from: "paid", to: "confirmed"}:    roles(model.RolePharmacyAdmin),
		{from: "pending", to: "cancelled"}: roles(model.RolePatient, model.RolePharmacyAdmin),
	},
	model.EntityAppointment: {
		{from: "pending", to: "confirmed"}: roles(model.RolePharmacyAdmin),
		{from: "pending", to: "cancelled"}: roles(model.RolePatient, model.RolePharmacyAdmin),
	},
	model.EntityPrescription: {
		{from: "pending", to: "ready"}:    roles(model.RolePharmacyAdmin),
		{from: "pending", to: "rejected"}: roles(model.RolePharmacyAdmin),
		{from: "ready", to: "picked_up"}:  roles(model.RolePharmacyAdmin),
	},
	model.EntityPayment: {
		{from: "pending", to: "approved"}: systemOnly(),
		{from: "pending", to: "declined"}: systemOnly(),
	},
	model.EntityDelivery: {
		{from: "pending", to: "accepted"}:    roles(model.RoleCourier),
		{from: "accepted", to: "picked_up"}:  roles(model.RoleCourier),
		{from: "picked_up", to: "delivered"}: roles(model.RoleCourier),
	},
}

// CanTransition reports whether (from, to) is an edge of the entity's
// transition graph.
func CanTransition(entity model.EntityType, from, to string) bool {
	graph, ok := transitionGraphs[entity]
	if !ok {
		return false
	}
	_, ok = graph[edge{from: from, to: to}]
	return ok
}

// EdgeAllowsRole reports whether the role may drive the edge.
// super_admin passes everywhere; system-only edges reject every role
// but super_admin.
func EdgeAllowsRole(entity model.EntityType, from, to string, role model.Role) bool {
	if role == model.RoleSuperAdmin {
		return true
	}
	graph, ok := transitionGraphs[entity]
	if !ok {
		return false
	}
	rule, ok := graph[edge{from: from, to: to}]
	if !ok {
		return false
	}
	return rule.roles[role]
}

// Statuses returns every status mentioned in the entity's graph,
// useful for exhaustive property checks.
func Statuses(entity model.EntityType) []string {
	graph := transitionGraphs[entity]
	seen := make(map[string]bool)
	var out []string
	for e := range graph {
		if !seen[e.from] {
			seen[e.from] = true
			out = append(out, e.from)
		}
		if !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	return out
}
