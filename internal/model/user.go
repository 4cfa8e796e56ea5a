package model

import (
	"github.com/google/uuid"
)

// Role is the fixed set of actor roles
type Role string

const (
	RolePatient       Role = "patient"
	RolePharmacyAdmin Role = "pharmacy_admin"
	RoleSuperAdmin    Role = "super_admin"
	RoleCourier       Role = "courier"
)

// User represents a platform account. PharmacyID is only meaningful
// for pharmacy_admin users.
type User struct {
	Base
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Phone        string     `json:"phone" db:"phone"`
	Password     string     `json:"password,omitempty" db:"-"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	PharmacyID   *uuid.UUID `json:"pharmacy_id,omitempty" db:"pharmacy_id"`
}

// Actor is the authenticated identity attached to each request
type Actor struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       Role       `json:"role"`
	PharmacyID *uuid.UUID `json:"pharmacy_id,omitempty"`
}

// IsSuperAdmin reports whether the actor bypasses ownership checks
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,togophone"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRoleRequest is a super_admin operation: role changes and
// pharmacy affiliation are never self-service.
type UpdateUserRoleRequest struct {
	Role       Role       `json:"role" binding:"required,oneof=patient pharmacy_admin super_admin courier"`
	PharmacyID *uuid.UUID `json:"pharmacy_id"`
}

type UserFilters struct {
	Role       Role       `json:"role" form:"role"`
	PharmacyID *uuid.UUID `json:"pharmacy_id" form:"pharmacy_id"`
	SearchTerm string     `json:"search_term" form:"search_term"`
}
