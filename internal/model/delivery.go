package model

import (
	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAccepted  DeliveryStatus = "accepted"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Delivery is a courier run for a reservation. CourierID is set exactly
// once, by the first courier whose accept wins the conditional update.
type Delivery struct {
	Base
	ReservationID uuid.UUID      `json:"reservation_id" db:"reservation_id"`
	CourierID     *uuid.UUID     `json:"courier_id,omitempty" db:"courier_id"`
	Status        DeliveryStatus `json:"status" db:"status"`
	Latitude      *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64       `json:"longitude,omitempty" db:"longitude"`
}

type CreateDeliveryRequest struct {
	ReservationID uuid.UUID `json:"reservation_id" binding:"required"`
}

type UpdatePositionRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"`
}
