package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a patient visit request, confirmed or declined by the
// pharmacy's admin.
type Appointment struct {
	Base
	PatientID       uuid.UUID         `json:"patient_id" db:"patient_id"`
	PharmacyID      uuid.UUID         `json:"pharmacy_id" db:"pharmacy_id"`
	AppointmentDate time.Time         `json:"appointment_date" db:"appointment_date"`
	Reason          string            `json:"reason" db:"reason"`
	Status          AppointmentStatus `json:"status" db:"status"`
}

type CreateAppointmentRequest struct {
	PharmacyID      uuid.UUID `json:"pharmacy_id" binding:"required"`
	AppointmentDate time.Time `json:"appointment_date" binding:"required"`
	Reason          string    `json:"reason" binding:"required,max=500"`
}
