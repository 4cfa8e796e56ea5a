package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat message in a pharmacy/patient conversation.
// Append-only; RecipientID names the other party explicitly so routing
// never has to be inferred from the sender.
type Message struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PharmacyID     uuid.UUID `json:"pharmacy_id" db:"pharmacy_id"`
	SenderID       uuid.UUID `json:"sender_id" db:"sender_id"`
	RecipientID    uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Content        string    `json:"content" db:"content"`
	IsFromPharmacy bool      `json:"is_from_pharmacy" db:"is_from_pharmacy"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type SendMessageRequest struct {
	PharmacyID  uuid.UUID `json:"pharmacy_id" binding:"required"`
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Content     string    `json:"content" binding:"required,max=2000"`
}
