package model

import (
	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusPaid      ReservationStatus = "paid"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a patient's hold on a quantity of a medication at a
// pharmacy. Status moves pending→paid→confirmed, or pending→cancelled.
type Reservation struct {
	Base
	PatientID    uuid.UUID         `json:"patient_id" db:"patient_id"`
	PharmacyID   uuid.UUID         `json:"pharmacy_id" db:"pharmacy_id"`
	MedicationID uuid.UUID         `json:"medication_id" db:"medication_id"`
	Quantity     int               `json:"quantity" db:"quantity"`
	Status       ReservationStatus `json:"status" db:"status"`
}

type CreateReservationRequest struct {
	PharmacyID   uuid.UUID `json:"pharmacy_id" binding:"required"`
	MedicationID uuid.UUID `json:"medication_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
}

// TransitionRequest is the shared payload for status-transition endpoints
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}
