package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted entities
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityType discriminates workflow entities
type EntityType string

const (
	EntityReservation  EntityType = "reservation"
	EntityAppointment  EntityType = "appointment"
	EntityPrescription EntityType = "prescription"
	EntityPayment      EntityType = "payment"
	EntityDelivery     EntityType = "delivery"
	EntityMessage      EntityType = "message"
	EntityPharmacy     EntityType = "pharmacy"
	EntityStock        EntityType = "stock"
	EntityMedication   EntityType = "medication"
	EntityUser         EntityType = "user"
)

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}
