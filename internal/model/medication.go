package model

import (
	"github.com/google/uuid"
)

// Medication is read-mostly catalog reference data
type Medication struct {
	Base
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
}

type CreateMedicationRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// Stock ties a pharmacy to a medication. Quantity never goes negative:
// decrements are conditional updates guarded by quantity >= n.
type Stock struct {
	Base
	PharmacyID   uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	MedicationID uuid.UUID `json:"medication_id" db:"medication_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        int64     `json:"price" db:"price"`
}

type UpsertStockRequest struct {
	MedicationID uuid.UUID `json:"medication_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"min=0"`
	Price        int64     `json:"price" binding:"required,min=0"`
}

// StockAvailability is a locator result row: an on-duty pharmacy
// carrying a given medication.
type StockAvailability struct {
	PharmacyID   uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	PharmacyName string    `json:"pharmacy_name" db:"pharmacy_name"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Price        int64     `json:"price" db:"price"`
}
