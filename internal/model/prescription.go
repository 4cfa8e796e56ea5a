package model

import (
	"github.com/google/uuid"
)

// PrescriptionStatus values are the canonical wire vocabulary. The
// dashboard's French labels (Prête, Annulée) are a display mapping
// owned by clients.
type PrescriptionStatus string

const (
	PrescriptionStatusPending  PrescriptionStatus = "pending"
	PrescriptionStatusReady    PrescriptionStatus = "ready"
	PrescriptionStatusRejected PrescriptionStatus = "rejected"
	PrescriptionStatusPickedUp PrescriptionStatus = "picked_up"
)

// Prescription is an uploaded prescription image reviewed by the
// pharmacy's admin. Marking it ready notifies the patient.
type Prescription struct {
	Base
	PatientID  uuid.UUID          `json:"patient_id" db:"patient_id"`
	PharmacyID uuid.UUID          `json:"pharmacy_id" db:"pharmacy_id"`
	ImageURL   string             `json:"image_url" db:"image_url"`
	Status     PrescriptionStatus `json:"status" db:"status"`
}

type CreatePrescriptionRequest struct {
	PharmacyID uuid.UUID `json:"pharmacy_id" binding:"required"`
	ImageURL   string    `json:"image_url" binding:"required,url"`
}
